package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"omevox/builder/define"
	"omevox/builder/volume"
)

func parseCoord(s string) (define.PE, bool, error) {
	rel := strings.HasPrefix(s, "~")
	s = strings.TrimPrefix(s, "~")
	if rel && s == "" {
		return 0, true, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, rel, err
	}
	return define.PE(v), rel, nil
}

// ParseCommand reads one "setblock x y z id" or "fill x1 y1 z1 x2 y2 z2 id"
// line, with or without '~' prefixes. The box is normalized so Min <= Max.
func ParseCommand(line string) (define.Command, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return define.Command{}, fmt.Errorf("compiler: empty command")
	}
	var c define.Command
	var coords int
	switch fields[0] {
	case "setblock":
		c.Kind, coords = define.CommandSet, 3
	case "fill":
		c.Kind, coords = define.CommandFill, 6
	default:
		return define.Command{}, fmt.Errorf("compiler: unknown command %q", fields[0])
	}
	if len(fields) < coords+2 {
		return define.Command{}, fmt.Errorf("compiler: %s needs %d coordinates and a block: %q", fields[0], coords, line)
	}
	var p [6]define.PE
	for i := 0; i < coords; i++ {
		v, rel, err := parseCoord(fields[1+i])
		if err != nil {
			return define.Command{}, fmt.Errorf("compiler: coordinate %q: %w", fields[1+i], err)
		}
		p[i] = v
		c.Relative = c.Relative || rel
	}
	if coords == 3 {
		copy(p[3:], p[:3])
	}
	for a := 0; a < 3; a++ {
		c.Min[a], c.Max[a] = min(p[a], p[a+3]), max(p[a], p[a+3])
	}
	// fill may carry a trailing mode such as "replace"; block states have no spaces
	c.Block = define.Canonical(fields[1+coords])
	return c, nil
}

// ParseCommands parses newline separated commands, skipping blank lines
// and '#' comments.
func ParseCommands(text string) ([]define.Command, error) {
	var out []define.Command
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := ParseCommand(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Text renders commands one per line.
func Text(cmds []define.Command) string {
	var sb strings.Builder
	for _, c := range cmds {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Replay paints cmds into a fresh volume of the given size, clipping cells
// that fall outside it. Later commands overwrite earlier ones.
func Replay(cmds []define.Command, d volume.Dims) *volume.PaletteVolume {
	v := volume.NewPaletteVolume(d)
	index := map[string]uint32{}
	for i, id := range v.Palette {
		index[id] = uint32(i)
	}
	for _, c := range cmds {
		var k uint32
		if !define.IsAir(c.Block) {
			var ok bool
			if k, ok = index[c.Block]; !ok {
				k = uint32(len(v.Palette))
				v.Palette = append(v.Palette, c.Block)
				index[c.Block] = k
			}
		}
		for y := c.Min[1]; y <= c.Max[1]; y++ {
			for z := c.Min[2]; z <= c.Max[2]; z++ {
				for x := c.Min[0]; x <= c.Max[0]; x++ {
					if d.Contains(int(x), int(y), int(z)) {
						v.Indices[d.Index(int(x), int(y), int(z))] = k
					}
				}
			}
		}
	}
	return v
}
