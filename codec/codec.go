// Package codec is the boundary between the host loader and the
// rewriters. A codec is a named pair of decode and encode hooks; the
// loader finds the codec named in a source file's coding declaration and
// calls its decode hook with the raw bytes before tokenizing anything.
package codec

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Policy is a decode error policy, forwarded verbatim to the text decoder.
type Policy string

const (
	Strict  Policy = "strict"
	Replace Policy = "replace"
	Ignore  Policy = "ignore"
)

var (
	// ErrUnknownPolicy is returned for a policy other than strict, replace
	// or ignore.
	ErrUnknownPolicy = errors.New("unknown error policy")
	// ErrReverseUnsupported is returned by the encode direction of every
	// rewriting codec: turning plain syntax back into marked syntax would
	// be a guess.
	ErrReverseUnsupported = errors.New("encoding is not supported by this codec")
	// ErrUnknownCodec is returned when a name resolves to neither a
	// registered codec nor a known charset.
	ErrUnknownCodec = errors.New("unknown codec")
)

// ParsePolicy validates a policy name. The empty string means strict.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return Strict, nil
	case Strict, Replace, Ignore:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// DecodeFunc is the source-transform hook: it receives the complete raw
// source and returns the text the host should compile plus the number of
// bytes consumed.
type DecodeFunc func(raw []byte, policy Policy) (string, int, error)

// EncodeFunc is the reverse direction.
type EncodeFunc func(text string, policy Policy) ([]byte, int, error)

// Codec is a registered transform.
type Codec struct {
	Name        string
	Description string
	Decode      DecodeFunc
	Encode      EncodeFunc
}

// DecodeError reports invalid input under the strict policy.
type DecodeError struct {
	Offset int
	Byte   byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("can't decode byte 0x%02x in position %d: invalid utf-8", e.Byte, e.Offset)
}

// DecodeUTF8 decodes raw as UTF-8 under policy: strict fails on the first
// invalid byte, replace substitutes U+FFFD, ignore drops invalid bytes.
func DecodeUTF8(raw []byte, policy Policy) (string, error) {
	switch policy {
	case Strict, "":
		if !utf8.Valid(raw) {
			for i := 0; i < len(raw); {
				r, size := utf8.DecodeRune(raw[i:])
				if r == utf8.RuneError && size == 1 {
					return "", &DecodeError{Offset: i, Byte: raw[i]}
				}
				i += size
			}
		}
		return string(raw), nil
	case Replace:
		out, err := unicode.UTF8.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case Ignore:
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		out := make([]byte, 0, len(raw))
		for i := 0; i < len(raw); {
			r, size := utf8.DecodeRune(raw[i:])
			if r != utf8.RuneError || size != 1 {
				out = append(out, raw[i:i+size]...)
			}
			i += size
		}
		return string(out), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
}

// NewTransform builds a rewriting codec. Its decode hook decodes UTF-8
// under the caller's policy, rewrites the text and always reports the
// whole input as consumed; its encode hook fails with
// ErrReverseUnsupported.
func NewTransform(name, description string, rewrite func(string) (string, error)) *Codec {
	return &Codec{
		Name:        name,
		Description: description,
		Decode: func(raw []byte, policy Policy) (string, int, error) {
			text, err := DecodeUTF8(raw, policy)
			if err != nil {
				return "", 0, err
			}
			out, err := rewrite(text)
			if err != nil {
				return "", 0, err
			}
			return out, len(raw), nil
		},
		Encode: func(string, Policy) ([]byte, int, error) {
			return nil, 0, fmt.Errorf("%s: %w", name, ErrReverseUnsupported)
		},
	}
}
