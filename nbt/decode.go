package nbt

import (
	"encoding/binary"
	"fmt"
	"math"

	"omevox/define"
)

// MaxDepth bounds list/compound nesting.
const MaxDepth = 512

// Decode parses a named root tag, decompressing gzip or zlib input first.
// The root must be a compound.
func Decode(data []byte) (string, *Compound, error) {
	return DecodeRaw(Decompress(data))
}

// DecodeRaw parses a named root compound from uncompressed big-endian bytes.
func DecodeRaw(data []byte) (string, *Compound, error) {
	d := &decoder{buf: data}
	typ, err := d.u8()
	if err != nil {
		return "", nil, err
	}
	if TagType(typ) != TagCompound {
		return "", nil, d.fail("root is %v, want %v", TagType(typ), TagCompound)
	}
	name, err := d.str()
	if err != nil {
		return "", nil, err
	}
	payload, err := d.payload(TagCompound, 0)
	if err != nil {
		return "", nil, err
	}
	return name, payload.(*Compound), nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) fail(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s (offset %d)", define.ErrMalformedTag, fmt.Sprintf(format, args...), d.pos)
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.pos < n {
		return nil, d.fail("truncated: need %d bytes, have %d", n, len(d.buf)-d.pos)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// count reads a signed 32 bit length and checks it against what is left,
// assuming each element needs at least width bytes.
func (d *decoder) count(width int) (int, error) {
	v, err := d.u32()
	if err != nil {
		return 0, err
	}
	n := int(int32(v))
	if n < 0 {
		return 0, d.fail("negative length %d", n)
	}
	if width > 0 && n > (len(d.buf)-d.pos)/width {
		return 0, d.fail("truncated: length %d exceeds remaining payload", n)
	}
	return n, nil
}

func (d *decoder) payload(typ TagType, depth int) (Tag, error) {
	if depth > MaxDepth {
		return nil, d.fail("nesting deeper than %d", MaxDepth)
	}
	switch typ {
	case TagEnd:
		return End{}, nil
	case TagByte:
		v, err := d.u8()
		return Byte(int8(v)), err
	case TagShort:
		v, err := d.u16()
		return Short(int16(v)), err
	case TagInt:
		v, err := d.u32()
		return Int(int32(v)), err
	case TagLong:
		v, err := d.u64()
		return Long(int64(v)), err
	case TagFloat:
		v, err := d.u32()
		return Float(math.Float32frombits(v)), err
	case TagDouble:
		v, err := d.u64()
		return Double(math.Float64frombits(v)), err
	case TagByteArray:
		n, err := d.count(1)
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, b)
		return ByteArray(out), nil
	case TagString:
		s, err := d.str()
		return String(s), err
	case TagList:
		elem, err := d.u8()
		if err != nil {
			return nil, err
		}
		if TagType(elem) > TagLongArray {
			return nil, d.fail("unknown list element type %d", elem)
		}
		n, err := d.count(0)
		if err != nil {
			return nil, err
		}
		if TagType(elem) == TagEnd && n > 0 {
			return nil, d.fail("list of %d TAG_End", n)
		}
		if n > len(d.buf)-d.pos {
			return nil, d.fail("truncated: list length %d exceeds remaining payload", n)
		}
		l := &List{Elem: TagType(elem), Items: make([]Tag, 0, n)}
		for i := 0; i < n; i++ {
			item, err := d.payload(TagType(elem), depth+1)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, item)
		}
		return l, nil
	case TagCompound:
		c := NewCompound()
		for {
			t, err := d.u8()
			if err != nil {
				return nil, err
			}
			if TagType(t) == TagEnd {
				return c, nil
			}
			if TagType(t) > TagLongArray {
				return nil, d.fail("unknown tag type %d", t)
			}
			name, err := d.str()
			if err != nil {
				return nil, err
			}
			v, err := d.payload(TagType(t), depth+1)
			if err != nil {
				return nil, err
			}
			c.Set(name, v)
		}
	case TagIntArray:
		n, err := d.count(4)
		if err != nil {
			return nil, err
		}
		out := make([]int32, n)
		for i := range out {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			out[i] = int32(v)
		}
		return IntArray(out), nil
	case TagLongArray:
		n, err := d.count(8)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		for i := range out {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			out[i] = int64(v)
		}
		return LongArray(out), nil
	}
	return nil, d.fail("unknown tag type %d", byte(typ))
}
