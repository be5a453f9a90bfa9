package packed

import "fmt"

// DecodeVarints reads count unsigned LEB128 values from data. Every value
// takes at least one byte, so the result never outgrows len(data).
func DecodeVarints(data []byte, count int) ([]uint32, error) {
	if count < 0 || count > len(data) {
		return nil, fmt.Errorf("%w: %d bytes cannot hold %d varints", ErrTruncated, len(data), count)
	}
	out := make([]uint32, 0, count)
	pos := 0
	for len(out) < count {
		var v uint32
		var shift uint
		for {
			if pos >= len(data) {
				return nil, fmt.Errorf("%w: %d of %d varints before end of data", ErrTruncated, len(out), count)
			}
			b := data[pos]
			pos++
			if shift >= 32 {
				return nil, fmt.Errorf("%w: varint at entry %d overflows 32 bits", ErrTruncated, len(out))
			}
			v |= uint32(b&0x7f) << shift
			if b&0x80 == 0 {
				break
			}
			shift += 7
		}
		out = append(out, v)
	}
	return out, nil
}

func EncodeVarints(values []uint32) []byte {
	out := make([]byte, 0, len(values))
	for _, v := range values {
		for v >= 0x80 {
			out = append(out, byte(v)|0x80)
			v >>= 7
		}
		out = append(out, byte(v))
	}
	return out
}
