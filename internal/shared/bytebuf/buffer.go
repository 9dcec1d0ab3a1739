// Package bytebuf models the byte containers that cross the shim boundary:
// flat byte buffers and typed views over shared backing storage.
package bytebuf

import "fmt"

// Buffer is implemented by Bytes and View only.
type Buffer interface {
	// Data returns the addressed bytes, aliasing the backing storage.
	Data() []byte
	// ByteLength returns len(Data()).
	ByteLength() int

	buffer()
}

// Bytes is a flat byte buffer.
type Bytes []byte

func (b Bytes) Data() []byte    { return b }
func (b Bytes) ByteLength() int { return len(b) }
func (Bytes) buffer()           {}

// Kind identifies the element layout of a View.
type Kind uint8

const (
	Uint8 Kind = iota
	Uint8Clamped
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Float64
	BigInt64
	BigUint64
	DataView
)

var kindNames = [...]string{
	Uint8:        "Uint8Array",
	Uint8Clamped: "Uint8ClampedArray",
	Int8:         "Int8Array",
	Uint16:       "Uint16Array",
	Int16:        "Int16Array",
	Uint32:       "Uint32Array",
	Int32:        "Int32Array",
	Float32:      "Float32Array",
	Float64:      "Float64Array",
	BigInt64:     "BigInt64Array",
	BigUint64:    "BigUint64Array",
	DataView:     "DataView",
}

// String returns the JavaScript constructor name for k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ElementSize returns the width of one element in bytes. DataView is byte
// addressed.
func (k Kind) ElementSize() int {
	switch k {
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64, BigInt64, BigUint64:
		return 8
	default:
		return 1
	}
}

// KindByName maps a constructor name back to its Kind.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// View is a fixed-width element window over shared storage. Two views over
// the same Storage observe each other's writes.
type View struct {
	Kind       Kind
	Storage    []byte
	ByteOffset int
	Length     int // in bytes
}

// NewView returns a view over storage[offset:offset+length]. It fails when
// the window does not fit the storage or does not align to the element size.
func NewView(kind Kind, storage []byte, offset, length int) (View, error) {
	if offset < 0 || length < 0 || offset+length > len(storage) {
		return View{}, fmt.Errorf("view [%d, %d) out of bounds for storage of %d bytes", offset, offset+length, len(storage))
	}
	if size := kind.ElementSize(); length%size != 0 {
		return View{}, fmt.Errorf("%s byte length %d is not a multiple of %d", kind, length, size)
	}
	return View{Kind: kind, Storage: storage, ByteOffset: offset, Length: length}, nil
}

// ViewOf wraps the whole of storage as a view of the given kind.
func ViewOf(kind Kind, storage []byte) View {
	return View{Kind: kind, Storage: storage, Length: len(storage)}
}

func (v View) Data() []byte {
	return v.Storage[v.ByteOffset : v.ByteOffset+v.Length : v.ByteOffset+v.Length]
}

func (v View) ByteLength() int { return v.Length }
func (View) buffer()           {}

// Reslice returns a view of the same kind over the same storage and window.
func (v View) Reslice() View {
	return View{Kind: v.Kind, Storage: v.Storage, ByteOffset: v.ByteOffset, Length: v.Length}
}
