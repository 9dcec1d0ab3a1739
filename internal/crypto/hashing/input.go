package hashing

import (
	"errors"

	"github.com/GriffinCanCode/nodeshim/internal/shared/bytebuf"
)

// ErrInputNotString is returned when an input encoding accompanies data that
// is not a string.
var ErrInputNotString = errors.New("Input data must be a string when inputEncoding is specified")

// Input is one of ViewInput, TextInput, BytesInput or RawInput.
type Input interface {
	input()
}

// ViewInput is a typed view hashed as the bytes it covers.
type ViewInput struct {
	View bytebuf.View
}

// TextInput is a string that must be decoded with Encoding before hashing.
type TextInput struct {
	Text     string
	Encoding Encoding
}

// BytesInput is a flat run of byte values.
type BytesInput struct {
	Data []byte
}

// RawInput is passed to the accumulator unconverted.
type RawInput struct {
	Value any
}

func (ViewInput) input()  {}
func (TextInput) input()  {}
func (BytesInput) input() {}
func (RawInput) input()   {}

// Classify decides the input shape for data. Views win over everything else;
// a non-empty inputEncoding then requires a string.
func Classify(data any, inputEncoding string) (Input, error) {
	if v, ok := data.(bytebuf.View); ok {
		return ViewInput{View: v}, nil
	}
	if inputEncoding != "" {
		s, ok := data.(string)
		if !ok {
			return nil, ErrInputNotString
		}
		return TextInput{Text: s, Encoding: Encoding(inputEncoding)}, nil
	}
	switch v := data.(type) {
	case []byte:
		return BytesInput{Data: v}, nil
	case bytebuf.Bytes:
		return BytesInput{Data: v}, nil
	case []int:
		return BytesInput{Data: byteValues(v)}, nil
	}
	return RawInput{Value: data}, nil
}

func byteValues(values []int) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v)
	}
	return out
}
