package schematic

import (
	"fmt"

	"omevox/builder/define"
	errs "omevox/define"
	"omevox/nbt"
)

// paletteBuilder assigns global indices, air first, then first seen.
type paletteBuilder struct {
	ids   []string
	index map[string]uint32
}

func newPaletteBuilder() *paletteBuilder {
	air := define.AirBlock.String()
	return &paletteBuilder{ids: []string{air}, index: map[string]uint32{air: 0}}
}

func (p *paletteBuilder) id(name string) uint32 {
	if define.IsAir(name) {
		return 0
	}
	if i, ok := p.index[name]; ok {
		return i
	}
	i := uint32(len(p.ids))
	p.ids = append(p.ids, name)
	p.index[name] = i
	return i
}

// readPalette maps a source palette to global indices, indexed by the
// local palette index. Palettes come as name->index compounds, lists of
// {Name, Properties} compounds or lists of strings.
func readPalette(t nbt.Tag, p *paletteBuilder) ([]uint32, error) {
	switch v := t.(type) {
	case *nbt.Compound:
		remap := make([]uint32, 0, v.Len())
		for _, name := range v.Names() {
			local, ok := v.Number(name)
			if !ok || local < 0 || local > 1<<20 {
				return nil, fmt.Errorf("%w: bad palette index for %q", errs.ErrMalformedTag, name)
			}
			for int(local) >= len(remap) {
				remap = append(remap, 0)
			}
			remap[local] = p.id(define.Canonical(name))
		}
		return remap, nil
	case *nbt.List:
		remap := make([]uint32, 0, len(v.Items))
		for _, item := range v.Items {
			name, err := PaletteEntry(item)
			if err != nil {
				return nil, err
			}
			remap = append(remap, p.id(name))
		}
		return remap, nil
	}
	return nil, fmt.Errorf("%w: palette is %v", errs.ErrUnsupportedFormat, t.Type())
}

// PaletteEntry canonicalizes one palette item: a plain id string or a
// {Name, Properties} compound.
func PaletteEntry(t nbt.Tag) (string, error) {
	switch v := t.(type) {
	case nbt.String:
		return define.Canonical(string(v)), nil
	case *nbt.Compound:
		name, ok := v.String("Name")
		if !ok {
			name, ok = v.String("name")
		}
		if !ok {
			return "", fmt.Errorf("%w: palette entry without Name", errs.ErrMalformedTag)
		}
		props := map[string]string{}
		pc, ok := v.Compound("Properties")
		if !ok {
			pc, _ = v.Compound("states")
		}
		if pc != nil {
			for _, k := range pc.Names() {
				val, _ := pc.Get(k)
				if s, ok := nbt.Text(val); ok {
					props[k] = s
				} else if n, ok := nbt.Number(val); ok {
					props[k] = fmt.Sprint(n)
				}
			}
		}
		return define.NewBlockDescribe(name, props).String(), nil
	}
	return "", fmt.Errorf("%w: palette entry is %v", errs.ErrMalformedTag, t.Type())
}

func lookup(remap []uint32, local uint32) (uint32, error) {
	if int(local) >= len(remap) {
		return 0, fmt.Errorf("%w: palette index %d out of %d", errs.ErrMalformedTag, local, len(remap))
	}
	return remap[local], nil
}
