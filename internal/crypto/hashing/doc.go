/*
Package hashing implements a chainable, multi-encoding hash API on top of an
opaque incremental checksum primitive (an Accumulator).

# Lifecycle

A Hash moves Created -> Updated* -> Digested with no transition barrier.
Digest may be called repeatedly and Update may follow a Digest; the result
always reflects every byte appended so far.

	h, err := hashing.CreateHash("sha256", nil)
	if err != nil {
		return err
	}
	if _, err := h.Update(hashing.TextInput{Text: "hello", Encoding: hashing.UTF8}); err != nil {
		return err
	}
	d, _ := h.Digest(hashing.Hex)
	fmt.Println(d.Text)

# Inputs

Update accepts a closed set of input shapes. Classify picks the shape once
from an untyped value and an optional input encoding:

  - ViewInput: a typed view, hashed as its raw bytes
  - TextInput: a string decoded with an explicit encoding
  - BytesInput: a byte slice or byte-valued array
  - RawInput: anything else, handed to the accumulator unconverted

# Copy semantics

Copy does not clone state. The copy and the original share one accumulator,
so an Update through either is visible to both.
*/
package hashing
