package cell

import (
	"context"
	"fmt"
	"strings"
)

// ResourceID names an addressable resource, typically a document URI such as
// "file:///budget.xlsx". It is opaque to the core and compared by value.
type ResourceID string

// String returns the identifier as a plain string.
func (r ResourceID) String() string { return string(r) }

// Address locates one unit inside a resource. Both coordinates are
// zero-based and non-negative.
type Address struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Valid reports whether both coordinates are non-negative.
func (a Address) Valid() bool {
	return a.Row >= 0 && a.Col >= 0
}

// String returns the address in R<row>C<col> form.
func (a Address) String() string {
	return fmt.Sprintf("R%dC%d", a.Row, a.Col)
}

// ParseAddress parses the R<row>C<col> form produced by Address.String.
func ParseAddress(s string) (Address, error) {
	var a Address
	upper := strings.ToUpper(s)
	if n, err := fmt.Sscanf(upper, "R%dC%d", &a.Row, &a.Col); err != nil || n != 2 {
		return Address{}, fmt.Errorf("invalid address %q, want R<row>C<col>", s)
	}
	if !a.Valid() {
		return Address{}, fmt.Errorf("invalid address %q, coordinates must be non-negative", s)
	}
	return a, nil
}

// Unit is the atomic payload of reads and writes: an address paired with a
// scalar value.
type Unit struct {
	Address Address `json:"address"`
	Value   Value   `json:"value"`
}

// Provider reads and writes individually addressable units for a class of
// resources. Implementations are supplied by extensions (crossing the
// boundary as proxies) or constructed locally in the trusted core; the
// registry does not distinguish the two.
//
// ReadAddress and WriteAddress reject with ErrUnknownResource when the
// resource is not managed by this provider, and with ErrOutOfRange or
// ErrReadOnly per the contract. Dispose is idempotent.
type Provider interface {
	ReadAddress(ctx context.Context, res ResourceID, addr Address) (Unit, error)
	WriteAddress(ctx context.Context, res ResourceID, unit Unit) error
	Dispose() error
}
