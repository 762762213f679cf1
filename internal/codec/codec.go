// Package codec implements the reversible character-substitution transform
// used to obscure quiz papers and answer snapshots that cross the offline
// boundary (download, external storage, re-upload).
//
// This is obfuscation, NOT encryption. The shift amounts are fixed and
// public and there is no key material; do not rely on it for
// confidentiality against a motivated reader.
package codec

const (
	letterShift = 11
	digitShift  = 4
)

// Encode applies a cyclic shift to every character of text: uppercase and
// lowercase Latin letters advance by 11 within their alphabet, decimal
// digits advance by 4. Everything else passes through unchanged.
//
// The transform is character-local, so it is safe to apply to chunks of a
// stream independently.
func Encode(text string) string {
	return shift(text, letterShift, digitShift)
}

// Decode inverts Encode. For all text, Decode(Encode(text)) == text.
func Decode(text string) string {
	return shift(text, 26-letterShift, 10-digitShift)
}

func shift(text string, letters, digits int) string {
	out := []byte(text)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+byte(letters))%26
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+byte(letters))%26
		case c >= '0' && c <= '9':
			out[i] = '0' + (c-'0'+byte(digits))%10
		}
	}
	return string(out)
}
