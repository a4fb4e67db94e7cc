package shellescape

import "testing"

func TestSingleQuote(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no quotes", "password", "password"},
		{"one quote", "a'b", `a'\''b`},
		{"multiple quotes", "'multiple'quotes'", `'\''multiple'\''quotes'\''`},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SingleQuote(tc.in); got != tc.want {
				t.Errorf("SingleQuote(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestQuoted(t *testing.T) {
	if got := Quoted("a'b"); got != `'a'\''b'` {
		t.Errorf("Quoted = %q", got)
	}
}
