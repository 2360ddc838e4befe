package extension

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gridstorm/internal/bridge"
)

// Loader discovers and activates extensions from a directory tree.
type Loader struct {
	log   *zap.Logger
	hosts []HostOption
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithHostOptions forwards options to every created Host.
func WithHostOptions(opts ...HostOption) LoaderOption {
	return func(l *Loader) {
		l.hosts = append(l.hosts, opts...)
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover returns the subdirectories of root that hold an extension
// manifest. A missing root is treated as empty, not an error.
func (l *Loader) Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read extension dir %s: %w", root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// LoadAll discovers, loads, and activates every extension under root,
// registering their providers through the boundary client. Extensions load
// concurrently; one extension's failure never aborts the rest. The returned
// hosts are the successfully activated extensions; the returned error joins
// every per-extension failure.
func (l *Loader) LoadAll(ctx context.Context, root string, client *bridge.Client) ([]*Host, error) {
	dirs, err := l.Discover(root)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		hosts  []*Host
		errs   []error
		g, gtx = errgroup.WithContext(ctx)
	)

	for _, dir := range dirs {
		dir := dir
		g.Go(func() error {
			host, err := l.loadOne(gtx, dir, client)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				l.log.Debug("extension failed to load",
					zap.String("dir", dir),
					zap.Error(err))
				return nil
			}
			hosts = append(hosts, host)
			return nil
		})
	}
	_ = g.Wait()

	return hosts, errors.Join(errs...)
}

// loadOne takes one directory through manifest, load, and activate.
func (l *Loader) loadOne(ctx context.Context, dir string, client *bridge.Client) (*Host, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	host, err := NewHost(manifest, l.hosts...)
	if err != nil {
		return nil, err
	}

	if err := host.Load(ctx); err != nil {
		return nil, err
	}
	if err := host.Activate(ctx, client); err != nil {
		_ = host.Unload(ctx)
		return nil, err
	}

	l.log.Debug("extension active", zap.String("owner", manifest.Owner()))
	return host, nil
}
