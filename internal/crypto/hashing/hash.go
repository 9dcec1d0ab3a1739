package hashing

import "fmt"

// handle is the accumulator state shared by a Hash and its copies.
type handle struct {
	acc    Accumulator
	owners int
}

// Hash is a chainable digest in progress. It is not safe for concurrent use.
type Hash struct {
	algorithm string
	state     *handle
	options   any
}

// CreateHash starts a digest for algorithm. Options are kept for callers and
// never interpreted. Algorithm validation is left to the accumulator factory.
func CreateHash(algorithm string, options any) (*Hash, error) {
	acc, err := NewAccumulator(algorithm)
	if err != nil {
		return nil, err
	}
	return FromAccumulator(algorithm, acc, options), nil
}

// FromAccumulator wraps an existing accumulator.
func FromAccumulator(algorithm string, acc Accumulator, options any) *Hash {
	return &Hash{
		algorithm: algorithm,
		state:     &handle{acc: acc, owners: 1},
		options:   options,
	}
}

// Algorithm returns the name given at creation.
func (h *Hash) Algorithm() string { return h.algorithm }

// Options returns the options value given at creation.
func (h *Hash) Options() any { return h.options }

// Update appends in to the accumulator and returns h.
func (h *Hash) Update(in Input) (*Hash, error) {
	var err error
	switch in := in.(type) {
	case ViewInput:
		err = h.state.acc.Update(in.View.Data())
	case TextInput:
		var b []byte
		if b, err = DecodeString(in.Text, in.Encoding); err == nil {
			err = h.state.acc.Update(b)
		}
	case BytesInput:
		err = h.state.acc.Update(in.Data)
	case RawInput:
		err = h.state.acc.Update(in.Value)
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedData, in)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateValue classifies data and appends it.
func (h *Hash) UpdateValue(data any, inputEncoding string) (*Hash, error) {
	in, err := Classify(data, inputEncoding)
	if err != nil {
		return nil, err
	}
	return h.Update(in)
}

// Write implements io.Writer.
func (h *Hash) Write(p []byte) (int, error) {
	if _, err := h.Update(BytesInput{Data: p}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Digest is the output of Hash.Digest. Raw is set for Binary, Text otherwise.
type Digest struct {
	Encoding Encoding
	Raw      []byte
	Text     string
}

// Digest returns the digest of all input so far in enc. An empty enc means
// Binary. The hash stays usable afterwards.
func (h *Hash) Digest(enc Encoding) (Digest, error) {
	if enc == "" {
		enc = Binary
	}
	enc, err := ParseEncoding(string(enc))
	if err != nil {
		return Digest{}, err
	}
	switch enc {
	case Hex:
		return Digest{Encoding: Hex, Text: h.state.acc.HexDigest()}, nil
	case Binary:
		return Digest{Encoding: Binary, Raw: h.state.acc.Digest()}, nil
	}
	text, err := EncodeToString(h.state.acc.Digest(), enc)
	if err != nil {
		return Digest{}, err
	}
	return Digest{Encoding: enc, Text: text}, nil
}

// Sum returns the raw digest bytes.
func (h *Hash) Sum() []byte {
	return h.state.acc.Digest()
}

// Copy returns a Hash sharing h's accumulator and options. Updates through
// either are seen by both; this is an alias, not a snapshot.
func (h *Hash) Copy() *Hash {
	h.state.owners++
	return &Hash{algorithm: h.algorithm, state: h.state, options: h.options}
}

// Shared reports whether h's accumulator is referenced by another Hash.
func (h *Hash) Shared() bool {
	return h.state.owners > 1
}
