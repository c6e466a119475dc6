package types

import "testing"

func TestAddressNormalized(t *testing.T) {
	addr := Address{Line1: "  12 Rue Cler ", City: " Paris", PostalCode: "75007 ", Country: " fr "}.Normalized()
	if addr.Line1 != "12 Rue Cler" || addr.City != "Paris" || addr.PostalCode != "75007" {
		t.Fatalf("unexpected normalized address %+v", addr)
	}
	if addr.Country != "FR" {
		t.Fatalf("expected upper-case country, got %q", addr.Country)
	}
}

func TestAddressIsZero(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Fatal("expected empty address to be zero")
	}
	if (Address{Line1: "1 Main"}).IsZero() {
		t.Fatal("expected address with line1 to be non-zero")
	}
}
