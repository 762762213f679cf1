package codec

import "testing"

func TestEncodeKnownValues(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello5", "Spwwz9"},
		{"ABC", "LMN"},
		{"xyz", "ijk"},
		{"0123456789", "4567890123"},
		{"", ""},
		{"!@# $%^", "!@# $%^"},
	}

	for _, tc := range cases {
		if got := Encode(tc.in); got != tc.want {
			t.Errorf("Encode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeInvertsEncode(t *testing.T) {
	// Every printable ASCII character, plus a realistic answer payload.
	var printable []byte
	for c := byte(0x20); c < 0x7f; c++ {
		printable = append(printable, c)
	}

	inputs := []string{
		string(printable),
		`{"quiz_id":"q1","roll_no":"42","answers":[{"question":1,"answer":"B"}]}`,
		"Question 1: What is 2+2?\nA) 3  B) 4  C) 5",
	}

	for _, in := range inputs {
		if got := Decode(Encode(in)); got != in {
			t.Errorf("Decode(Encode(%q)) = %q", in, got)
		}
		if got := Encode(Decode(in)); got != in {
			t.Errorf("Encode(Decode(%q)) = %q", in, got)
		}
	}
}

func TestEncodePreservesNonASCII(t *testing.T) {
	in := "soal ujian — 日本語 ü"
	enc := Encode(in)
	if Decode(enc) != in {
		t.Errorf("round trip lost non-ASCII content: %q -> %q -> %q", in, enc, Decode(enc))
	}
}
