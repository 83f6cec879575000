package ror

import "testing"

func TestExtractID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://ror.org/02mhbdp94", "02mhbdp94"},
		{"https://registry.example/0abc123xy", "0abc123xy"},
		{"https://ror.org/02mhbdp94/", "02mhbdp94"},
		{"02mhbdp94", "02mhbdp94"},
		{"ror.org/02mhbdp94", "02mhbdp94"},
		{"", ""},
	}

	for _, c := range cases {
		if got := ExtractID(c.in); got != c.want {
			t.Errorf("ExtractID(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractID_Idempotent(t *testing.T) {
	t.Parallel()

	in := "https://ror.org/02mhbdp94"
	first := ExtractID(in)
	if got := ExtractID(in); got != first {
		t.Fatalf("ExtractID not deterministic: %q vs %q", first, got)
	}
	// Applying the extractor to its own output is a fixed point.
	if got := ExtractID(first); got != first {
		t.Fatalf("ExtractID(ExtractID(x))=%q, want %q", got, first)
	}
}

func TestHasCanonicalForm(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{"https://ror.org/02mhbdp94", true},
		{"https://registry.example/0abc123xy", false},
		{"https://ror.org/", false},
		{"https://ror.org/a/b", false},
		{"02mhbdp94", false},
	}
	for _, c := range cases {
		if got := HasCanonicalForm(c.in); got != c.want {
			t.Errorf("HasCanonicalForm(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidLangTag(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"", "en", "de", "zh-Hant"} {
		if !ValidLangTag(ok) {
			t.Errorf("ValidLangTag(%q)=false, want true", ok)
		}
	}
	for _, bad := range []string{"e", "not a lang", "zz9!"} {
		if ValidLangTag(bad) {
			t.Errorf("ValidLangTag(%q)=true, want false", bad)
		}
	}
}
