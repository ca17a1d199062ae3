package dbus

import (
	"testing"
)

func TestSignatureOf(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{byte(0), "y"},
		{bool(false), "b"},
		{int16(0), "n"},
		{uint16(0), "q"},
		{int32(0), "i"},
		{uint32(0), "u"},
		{int64(0), "x"},
		{uint64(0), "t"},
		{float64(0), "d"},
		{string(""), "s"},
		{Signature(""), "g"},
		{ObjectPath(""), "o"},
		{Fd{}, "h"},
		{[]string{}, "as"},
		{[4]byte{}, "ay"},
		{[][]string{}, "aas"},
		{map[string]int64{}, "a{sx}"},
		{Simple{}, "(nb)"},
		{[]Simple{}, "a(nb)"},
		{Nested{}, "(y(nb))"},
		{[]Nested{}, "a(y(nb))"},
		{Embedded{}, "((nb)y)"},
		{Arrays{}, "(asa(nb)aa(y(nb)))"},
		{ptr(any(int16(0))), "v"},
		{struct{ A any }{int16(0)}, "(v)"},

		{Tree{}, ""},
		{map[Simple]bool{}, ""},
		{map[[2]int64]bool{}, ""},
		{map[any]bool{}, ""},
		{func() int { return 2 }, ""},
		{int(0), ""},
		{int8(0), ""},
		{float32(0), ""},
		{struct{}{}, ""},
	}

	for _, tc := range tests {
		gotSig, err := SignatureOf(tc.in)
		gotErr := err != nil
		wantErr := tc.want == ""
		if gotErr != wantErr {
			wanted := "no error"
			if wantErr {
				wanted = "error"
			}
			t.Errorf("SignatureOf(%#v) got err %v, want %s", tc.in, err, wanted)
			continue
		}
		if wantErr {
			continue
		}
		if got := gotSig.String(); got != tc.want {
			t.Errorf("SignatureOf(%#v).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseSignatureRoundTrip(t *testing.T) {
	tests := []string{
		"y", "b", "n", "q", "i", "u", "x", "t", "d", "s", "g", "o", "h", "v",
		"as", "ay", "aas",
		"a{sx}",
		"(nb)",
		"a(nb)",
		"(y(nb))",
		"a(y(nb))",
		"(nby)",
		"(ny)",
		"(asa(nb)aa(y(nb)))",
		"",
		"ynbqi",
	}
	for _, sig := range tests {
		t.Run(sig, func(t *testing.T) {
			types, err := ParseSignature(sig)
			if err != nil {
				t.Fatalf("ParseSignature(%q): %v", sig, err)
			}
			if got := TypesString(types); got != sig {
				t.Fatalf("ParseSignature(%q) round-tripped to %q", sig, got)
			}
		})
	}
}

func TestParseSignatureErrors(t *testing.T) {
	tests := []string{
		"(",
		")",
		"()",     // empty struct
		"{sx}",   // dict-entry outside an array
		"a{(y)s}", // dict key must be a base type, not a struct
		"z",      // unknown type code
	}
	for _, sig := range tests {
		t.Run(sig, func(t *testing.T) {
			if _, err := ParseSignature(sig); err == nil {
				t.Fatalf("ParseSignature(%q) succeeded, want error", sig)
			}
		})
	}
}

func TestParseSignatureTooLong(t *testing.T) {
	long := make([]byte, maxSignatureLen+1)
	for i := range long {
		long[i] = 'y'
	}
	if _, err := ParseSignature(string(long)); err == nil {
		t.Fatal("ParseSignature of an oversized signature succeeded, want error")
	}
}

func TestParseSignatureMaxDepth(t *testing.T) {
	var sig string
	for i := 0; i < maxNestingDepth+2; i++ {
		sig += "a"
	}
	sig += "y"
	if _, err := ParseSignature(sig); err == nil {
		t.Fatal("ParseSignature of an over-nested signature succeeded, want error")
	}
}

func TestParseSingleType(t *testing.T) {
	if _, err := ParseSingleType("yy"); err == nil {
		t.Fatal("ParseSingleType(\"yy\") succeeded, want error")
	}
	ty, err := ParseSingleType("a{sv}")
	if err != nil {
		t.Fatalf("ParseSingleType: %v", err)
	}
	if ty.String() != "a{sv}" {
		t.Fatalf("got %q, want a{sv}", ty)
	}
}

func TestObjectPathValid(t *testing.T) {
	tests := []struct {
		path  ObjectPath
		valid bool
	}{
		{"/", true},
		{"/foo", true},
		{"/foo/bar", true},
		{"/foo/bar_2", true},
		{"", false},
		{"foo", false},
		{"/foo/", false},
		{"/foo//bar", false},
		{"/foo/b@r", false},
	}
	for _, tc := range tests {
		if got := tc.path.Valid(); got != tc.valid {
			t.Errorf("ObjectPath(%q).Valid() = %v, want %v", tc.path, got, tc.valid)
		}
	}
}
