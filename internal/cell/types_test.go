package cell_test

import (
	"testing"

	"github.com/dshills/gridstorm/internal/cell"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    cell.Address
		wantErr bool
	}{
		{"R0C0", cell.Address{Row: 0, Col: 0}, false},
		{"R12C3", cell.Address{Row: 12, Col: 3}, false},
		{"r4c5", cell.Address{Row: 4, Col: 5}, false},
		{"R-1C0", cell.Address{}, true},
		{"C3R1", cell.Address{}, true},
		{"", cell.Address{}, true},
		{"R1", cell.Address{}, true},
	}

	for _, tt := range tests {
		got, err := cell.ParseAddress(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAddress(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAddress(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAddressRoundTrip(t *testing.T) {
	addr := cell.Address{Row: 7, Col: 2}

	got, err := cell.ParseAddress(addr.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != addr {
		t.Errorf("round trip produced %v, want %v", got, addr)
	}
}
