package nbt

import "encoding/binary"

// NewLittleWriter returns the structure-file dialect: little-endian numbers
// and lengths, restricted to Byte, Int, Float, String, List and Compound.
// sizeHint pre-sizes the buffer.
func NewLittleWriter(sizeHint int) *Writer {
	w := &Writer{order: binary.LittleEndian}
	if sizeHint > 0 {
		w.Grow(sizeHint)
	}
	return w
}

// EncodeLittle writes root with the little-endian dialect.
func EncodeLittle(name string, root *Compound, sizeHint int) ([]byte, error) {
	w := NewLittleWriter(sizeHint)
	if err := w.WriteRoot(name, root); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
