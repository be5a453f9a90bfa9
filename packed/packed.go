// Package packed reads and writes palette indices stored as fixed-width
// fields inside 64-bit words, and LEB128 varint byte arrays.
package packed

import (
	"errors"
	"fmt"
	"math/bits"

	"omevox/define"
)

// ErrTruncated is returned when the input holds fewer entries than asked for.
var ErrTruncated = fmt.Errorf("%w: packed data truncated", define.ErrMalformedTag)

var errWidth = errors.New("packed: bits per entry must be in [1, 32]")

// BitsFor returns max(floor, ceil(log2(n))). floor is 2 for schematic
// palettes and 4 for region sections.
func BitsFor(paletteLen int, floor int) int {
	need := 0
	if paletteLen > 1 {
		need = bits.Len(uint(paletteLen - 1))
	}
	if need < floor {
		return floor
	}
	return need
}

// SpanningWords is the number of words Encode produces for count entries.
func SpanningWords(count, width int) int {
	return (count*width + 63) / 64
}

// AlignedWords is the number of words EncodeAligned produces for count entries.
func AlignedWords(count, width int) int {
	per := 64 / width
	return (count + per - 1) / per
}

func checkWidth(width int) error {
	if width < 1 || width > 32 {
		return errWidth
	}
	return nil
}

// Decode reads count entries laid over words as one continuous bit stream:
// entry i occupies bits [i*width, i*width+width) and may straddle two words.
func Decode(words []int64, count, width int) ([]uint32, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	if len(words) < SpanningWords(count, width) {
		return nil, fmt.Errorf("%w: %d words hold fewer than %d entries of %d bits", ErrTruncated, len(words), count, width)
	}
	mask := uint64(1)<<uint(width) - 1
	out := make([]uint32, count)
	for i := range out {
		off := i * width
		w, start := off>>6, uint(off&63)
		v := uint64(words[w]) >> start
		if int(start)+width > 64 {
			v |= uint64(words[w+1]) << (64 - start)
		}
		out[i] = uint32(v & mask)
	}
	return out, nil
}

// Encode is the inverse of Decode. Values wider than width are masked.
func Encode(values []uint32, width int) ([]int64, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	mask := uint64(1)<<uint(width) - 1
	out := make([]uint64, SpanningWords(len(values), width))
	for i, val := range values {
		v := uint64(val) & mask
		off := i * width
		w, start := off>>6, uint(off&63)
		out[w] |= v << start
		if int(start)+width > 64 {
			out[w+1] |= v >> (64 - start)
		}
	}
	return toSigned(out), nil
}

// DecodeAligned reads the layout where no entry crosses a word boundary:
// each word holds floor(64/width) entries and the leftover high bits are padding.
func DecodeAligned(words []int64, count, width int) ([]uint32, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	if len(words) < AlignedWords(count, width) {
		return nil, fmt.Errorf("%w: %d words hold fewer than %d aligned entries of %d bits", ErrTruncated, len(words), count, width)
	}
	per := 64 / width
	mask := uint64(1)<<uint(width) - 1
	out := make([]uint32, count)
	for i := range out {
		shift := uint((i % per) * width)
		out[i] = uint32(uint64(words[i/per]) >> shift & mask)
	}
	return out, nil
}

func EncodeAligned(values []uint32, width int) ([]int64, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	per := 64 / width
	mask := uint64(1)<<uint(width) - 1
	out := make([]uint64, AlignedWords(len(values), width))
	for i, val := range values {
		out[i/per] |= (uint64(val) & mask) << uint((i%per)*width)
	}
	return toSigned(out), nil
}

func toSigned(words []uint64) []int64 {
	out := make([]int64, len(words))
	for i, w := range words {
		out[i] = int64(w)
	}
	return out
}
