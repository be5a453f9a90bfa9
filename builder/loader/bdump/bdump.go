// Package bdump reads and writes BDX build files: a "BD@" magic followed by a
// brotli stream of brush-move and block-placement opcodes.
package bdump

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"

	"omevox/builder/define"
	"omevox/builder/ir"
	errs "omevox/define"
)

const (
	outerMagic = "BD@"
	innerMagic = "BDX\x00"

	opEnd = 'X'
	// a trailing 'Z' marks a signed file: ... sig, sigLen, 'Z'
	signedMark = 'Z'

	checkEvery = 1 << 14
)

// Info describes a loaded file.
type Info struct {
	Author string
	Signed bool
	Blocks int
}

// Options for Load. Log receives warnings about reserved opcodes.
type Options struct {
	Log      logrus.FieldLogger
	Reporter errs.Reporter
}

// ReadBrString reads a NUL terminated string.
func ReadBrString(br *bytes.Reader) (string, error) {
	var sb bytes.Buffer
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}

// IsBDX reports whether data starts with the BDX magic.
func IsBDX(data []byte) bool {
	return bytes.HasPrefix(data, []byte(outerMagic))
}

// BlockName renders a BDX name/data pair as a block id. Data values are
// kept as a "data" state so nothing is lost before translation.
func BlockName(name string, data uint16) string {
	if data == 0 {
		return define.NormalizeName(name)
	}
	return define.NewBlockDescribe(name, map[string]string{"data": strconv.Itoa(int(data))}).String()
}

type reader struct {
	br      *bytes.Reader
	op      byte
	scratch [4]byte
}

func (r *reader) corrupted(what string) error {
	return fmt.Errorf("%w: bdx: failed to read %s of opcode %d, file may be corrupted", errs.ErrMalformedTag, what, r.op)
}

func (r *reader) u8(what string) (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		return 0, r.corrupted(what)
	}
	return b, nil
}

func (r *reader) u16(what string) (uint16, error) {
	if _, err := io.ReadFull(r.br, r.scratch[:2]); err != nil {
		return 0, r.corrupted(what)
	}
	return binary.BigEndian.Uint16(r.scratch[:2]), nil
}

func (r *reader) u32(what string) (uint32, error) {
	if _, err := io.ReadFull(r.br, r.scratch[:4]); err != nil {
		return 0, r.corrupted(what)
	}
	return binary.BigEndian.Uint32(r.scratch[:4]), nil
}

func (r *reader) str(what string) (string, error) {
	s, err := ReadBrString(r.br)
	if err != nil {
		return "", r.corrupted(what)
	}
	return s, nil
}

// commandBlockData consumes mode, command, custom name, last output, tick
// delay and four flags. The block entity itself is not carried over.
func (r *reader) commandBlockData() error {
	if _, err := r.u32("mode"); err != nil {
		return err
	}
	for _, what := range []string{"command", "custom name", "last output"} {
		if _, err := r.str(what); err != nil {
			return err
		}
	}
	if _, err := r.u32("tick delay"); err != nil {
		return err
	}
	_, err := r.u32("flags")
	return err
}

// Load decodes a BDX file into target. Blocks are placed relative to the
// brush start at (0,0,0).
func Load(ctx context.Context, data []byte, target *ir.IR, opts Options) (*Info, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	report := errs.OrNop(opts.Reporter)
	if !IsBDX(data) {
		return nil, fmt.Errorf("%w: bdx: invalid header", errs.ErrUnsupportedFormat)
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data[len(outerMagic):])))
	if err != nil {
		return nil, fmt.Errorf("%w: bdx: %v", errs.ErrMalformedTag, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: bdx: empty body", errs.ErrMalformedTag)
	}
	info := &Info{}
	if body[len(body)-1] == signedMark && len(body) >= 2 {
		info.Signed = true
		sigLen := int(body[len(body)-2])
		if end := len(body) - sigLen - 2; end > 0 {
			body = body[:end]
		}
	}
	if !bytes.HasPrefix(body, []byte(innerMagic)) {
		return nil, fmt.Errorf("%w: bdx: invalid inner header", errs.ErrUnsupportedFormat)
	}
	r := &reader{br: bytes.NewReader(body[len(innerMagic):])}
	if info.Author, err = r.str("author"); err != nil {
		return nil, err
	}

	brush := [3]int{}
	var pool []string
	place := func(id uint16, blockData uint16) {
		if int(id) >= len(pool) {
			opts.Log.WithField("opcode", r.op).Warnf("bdx: block constant %d out of pool of %d", id, len(pool))
			return
		}
		target.SetBlockString(define.PE(brush[0]), define.PE(brush[1]), define.PE(brush[2]), BlockName(pool[id], blockData))
		info.Blocks++
	}

	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := errs.CheckContext(ctx); err != nil {
				return nil, err
			}
		}
		op, err := r.br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: bdx: missing end opcode", errs.ErrMalformedTag)
		}
		r.op = op
		switch op {
		case opEnd:
			report.Report(errs.StageIngest, fmt.Sprintf("bdx: %d blocks by %q", info.Blocks, info.Author))
			return info, nil
		case 1:
			s, err := r.str("block name")
			if err != nil {
				return nil, err
			}
			pool = append(pool, s)
		case 2, 4, 6:
			v, err := r.u16("jump")
			if err != nil {
				return nil, err
			}
			axis := int(op/2 - 1)
			brush[axis] += int(v)
			resetAfter(&brush, axis)
		case 3:
			brush[0]++
			resetAfter(&brush, 0)
		case 5:
			brush[1]++
			resetAfter(&brush, 1)
		case 7:
			id, err := r.u16("block id")
			if err != nil {
				return nil, err
			}
			d, err := r.u16("block data")
			if err != nil {
				return nil, err
			}
			place(id, d)
		case 8:
			brush[2]++
		case 9:
		case 10, 11, 12:
			v, err := r.u32("jump")
			if err != nil {
				return nil, err
			}
			axis := int(op - 10)
			brush[axis] += int(v)
			resetAfter(&brush, axis)
		case 13:
			opts.Log.Warn("bdx: use of reserved opcode 13")
		case 14, 15, 16, 17, 18, 19:
			axis := int(op-14) / 2
			if (op-14)%2 == 0 {
				brush[axis]++
			} else {
				brush[axis]--
			}
		case 20, 22, 24:
			v, err := r.u16("offset")
			if err != nil {
				return nil, err
			}
			brush[(op-20)/2] += int(int16(v))
		case 21, 23, 25:
			v, err := r.u32("offset")
			if err != nil {
				return nil, err
			}
			brush[(op-21)/2] += int(int32(v))
		case 26:
			if err := r.commandBlockData(); err != nil {
				return nil, err
			}
		case 27:
			id, err := r.u16("block id")
			if err != nil {
				return nil, err
			}
			d, err := r.u16("block data")
			if err != nil {
				return nil, err
			}
			if err := r.commandBlockData(); err != nil {
				return nil, err
			}
			place(id, d)
		case 28, 29, 30:
			v, err := r.u8("offset")
			if err != nil {
				return nil, err
			}
			brush[op-28] += int(int8(v))
		case 31, 32, 33, 34, 35, 38:
			return nil, fmt.Errorf("%w: bdx: opcode %d needs a runtime id pool", errs.ErrUnsupportedFormat, op)
		case 36:
			d, err := r.u16("block data")
			if err != nil {
				return nil, err
			}
			if err := r.commandBlockData(); err != nil {
				return nil, err
			}
			target.SetBlockString(define.PE(brush[0]), define.PE(brush[1]), define.PE(brush[2]), BlockName("command_block", d))
			info.Blocks++
		case 37:
			id, err := r.u16("block id")
			if err != nil {
				return nil, err
			}
			d, err := r.u16("block data")
			if err != nil {
				return nil, err
			}
			if err := r.chestData(); err != nil {
				return nil, err
			}
			place(id, d)
		default:
			return nil, fmt.Errorf("%w: bdx: unknown opcode %d", errs.ErrUnsupportedFormat, op)
		}
	}
}

// chestData consumes a slot list: count, then name, count, data, slot per item.
func (r *reader) chestData() error {
	slots, err := r.u8("slot count")
	if err != nil {
		return err
	}
	for i := 0; i < int(slots); i++ {
		if _, err := r.str("item name"); err != nil {
			return err
		}
		if _, err := r.u8("item count"); err != nil {
			return err
		}
		if _, err := r.u16("item data"); err != nil {
			return err
		}
		if _, err := r.u8("slot"); err != nil {
			return err
		}
	}
	return nil
}

// resetAfter zeroes the axes nested inside axis (x resets y and z, y resets z).
func resetAfter(brush *[3]int, axis int) {
	for i := axis + 1; i < 3; i++ {
		brush[i] = 0
	}
}
