package transform

import (
	"strings"

	"omevox/builder/define"
	"omevox/builder/volume"
)

const Barrier = "minecraft:barrier"

var gravityBlocks = map[string]bool{
	"sand": true, "red_sand": true, "gravel": true, "anvil": true, "chipped_anvil": true,
	"damaged_anvil": true, "dragon_egg": true, "pointed_dripstone": true, "concrete_powder": true,
	"suspicious_sand": true, "suspicious_gravel": true,
}

// FallsWithGravity reports whether id drops when unsupported.
func FallsWithGravity(id string) bool {
	if define.IsAir(id) {
		return false
	}
	name := define.ParseBlockDescribe(id).BaseName()
	return gravityBlocks[name] || strings.HasSuffix(name, "_concrete_powder")
}

// Supported places a barrier under every gravity block resting on air.
// Barriers that would sit below the volume are listed in
// BelowBoundsBarriers at y = -1, one per (x, z).
type Supported struct {
	src                 volume.Volume
	BelowBoundsBarriers []define.Pos
}

func Gravity(v volume.Volume) *Supported {
	s := &Supported{src: v}
	d := v.Dims()
	for z := 0; z < d.Length; z++ {
		for x := 0; x < d.Width; x++ {
			if d.Height > 0 && FallsWithGravity(v.Block(d.Index(x, 0, z))) {
				s.BelowBoundsBarriers = append(s.BelowBoundsBarriers, define.Pos{define.PE(x), -1, define.PE(z)})
			}
		}
	}
	return s
}

func (s *Supported) Dims() volume.Dims { return s.src.Dims() }

func (s *Supported) Block(index int) string {
	id := s.src.Block(index)
	if !define.IsAir(id) {
		return id
	}
	d := s.src.Dims()
	x, y, z := d.Coords(index)
	if y+1 < d.Height && FallsWithGravity(s.src.Block(d.Index(x, y+1, z))) {
		return Barrier
	}
	return id
}
