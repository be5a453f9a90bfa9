package nbt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedTag is returned by a writer asked to emit a tag outside its dialect.
var ErrUnsupportedTag = errors.New("nbt: tag not supported by dialect")

// Encode writes root as a big-endian named compound with the full type set.
func Encode(name string, root *Compound) ([]byte, error) {
	w := &Writer{order: binary.BigEndian, full: true}
	if err := w.WriteRoot(name, root); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeCompressed is Encode followed by gzip, the usual on-disk form.
func EncodeCompressed(name string, root *Compound) ([]byte, error) {
	b, err := Encode(name, root)
	if err != nil {
		return nil, err
	}
	return Gzip(b), nil
}

// Writer owns its output buffer. The big-endian writer accepts every tag, the
// little-endian one (see NewLittleWriter) only Byte/Int/Float/String/List/Compound.
type Writer struct {
	buf   bytes.Buffer
	order binary.ByteOrder
	full  bool
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

// Grow reserves room for n more bytes.
func (w *Writer) Grow(n int) {
	w.buf.Grow(n)
}

func (w *Writer) WriteRoot(name string, root *Compound) error {
	w.buf.WriteByte(byte(TagCompound))
	if err := w.str(name); err != nil {
		return err
	}
	return w.payload(root, 0)
}

func (w *Writer) allowed(t TagType) bool {
	if w.full {
		return t <= TagLongArray
	}
	switch t {
	case TagByte, TagInt, TagFloat, TagString, TagList, TagCompound:
		return true
	}
	return false
}

func (w *Writer) str(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes is too long", len(s))
	}
	var b [2]byte
	w.order.PutUint16(b[:], uint16(len(s)))
	w.buf.Write(b[:])
	w.buf.WriteString(s)
	return nil
}

func (w *Writer) u16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) u32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) u64(v uint64) {
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) payload(t Tag, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("nbt: nesting deeper than %d", MaxDepth)
	}
	if !w.allowed(t.Type()) {
		return fmt.Errorf("%w: %v", ErrUnsupportedTag, t.Type())
	}
	switch v := t.(type) {
	case End:
	case Byte:
		w.buf.WriteByte(byte(v))
	case Short:
		w.u16(uint16(v))
	case Int:
		w.u32(uint32(v))
	case Long:
		w.u64(uint64(v))
	case Float:
		w.u32(math.Float32bits(float32(v)))
	case Double:
		w.u64(math.Float64bits(float64(v)))
	case ByteArray:
		w.u32(uint32(len(v)))
		w.buf.Write(v)
	case String:
		return w.str(string(v))
	case *List:
		if !w.allowed(v.Elem) && len(v.Items) > 0 {
			return fmt.Errorf("%w: list of %v", ErrUnsupportedTag, v.Elem)
		}
		w.buf.WriteByte(byte(v.Elem))
		w.u32(uint32(len(v.Items)))
		for _, item := range v.Items {
			if item.Type() != v.Elem {
				return fmt.Errorf("nbt: %v in list of %v", item.Type(), v.Elem)
			}
			if err := w.payload(item, depth+1); err != nil {
				return err
			}
		}
	case *Compound:
		for _, name := range v.names {
			child := v.values[name]
			if !w.allowed(child.Type()) {
				return fmt.Errorf("%w: %v at %q", ErrUnsupportedTag, child.Type(), name)
			}
			w.buf.WriteByte(byte(child.Type()))
			if err := w.str(name); err != nil {
				return err
			}
			if err := w.payload(child, depth+1); err != nil {
				return err
			}
		}
		w.buf.WriteByte(byte(TagEnd))
	case IntArray:
		w.u32(uint32(len(v)))
		for _, x := range v {
			w.u32(uint32(x))
		}
	case LongArray:
		w.u32(uint32(len(v)))
		for _, x := range v {
			w.u64(uint64(x))
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedTag, t)
	}
	return nil
}
