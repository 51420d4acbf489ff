package services

import "testing"

func TestIdentityKeyNormalises(t *testing.T) {
	a := IdentityKey("Main St 1", "0123", "Oslo")
	b := IdentityKey(" main st   1 ", "0123", "oslo")
	if a != b {
		t.Errorf("case/whitespace variants should match: %q vs %q", a, b)
	}
	if a != "main st 1|0123|oslo" {
		t.Errorf("key: got %q, want %q", a, "main st 1|0123|oslo")
	}
}

func TestIdentityKeyIsIdempotent(t *testing.T) {
	once := IdentityKey("Storgata 12B", "5003", "Bergen")
	twice := IdentityKey(once, "", "")
	// Feeding a derived key back through keeps it stable (separator aside,
	// components are already normalized).
	if IdentityKey(twice, "", "") != twice {
		t.Errorf("normalization should be idempotent: %q -> %q", twice, IdentityKey(twice, "", ""))
	}
}

func TestIdentityKeyStripsCommas(t *testing.T) {
	got := IdentityKey("Storgata 1, inngang B", "0155", "Oslo")
	want := "storgata 1 inngang b|0155|oslo"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIdentityKeyOmitsEmptyComponents(t *testing.T) {
	got := IdentityKey("Storgata 1", "", "Oslo")
	if got != "storgata 1|oslo" {
		t.Errorf("got %q, want %q", got, "storgata 1|oslo")
	}
}

func TestIdentityKeyEmptyAddressIsUnlinkable(t *testing.T) {
	if got := IdentityKey("", "  ", ""); got != "" {
		t.Errorf("all-empty components: got %q, want empty key", got)
	}
}
