// Package swapcase provides a codec that swaps the case of every letter.
// It is its own inverse, so unlike the rewriters it can encode as well.
package swapcase

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/Akuli/import-that/codec"
)

// Name is the codec name.
const Name = "swapcase"

var swapper = runes.Map(func(r rune) rune {
	switch {
	case unicode.IsUpper(r):
		return unicode.ToLower(r)
	case unicode.IsLower(r):
		return unicode.ToUpper(r)
	}
	return r
})

// Codec is the registered codec.
var Codec = &codec.Codec{
	Name:        Name,
	Description: "swaps upper and lower case",
	Decode: func(raw []byte, policy codec.Policy) (string, int, error) {
		text, err := codec.DecodeUTF8(raw, policy)
		if err != nil {
			return "", 0, err
		}
		return Swap(text), len(raw), nil
	},
	Encode: func(text string, policy codec.Policy) ([]byte, int, error) {
		if _, err := codec.ParsePolicy(string(policy)); err != nil {
			return nil, 0, err
		}
		return []byte(Swap(text)), len(text), nil
	},
}

func init() {
	codec.Register(Codec)
}

// Swap returns s with the case of every letter swapped.
func Swap(s string) string {
	out, _, _ := transform.String(swapper, s)
	return out
}
