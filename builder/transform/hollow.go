package transform

import (
	"strings"
	"sync"

	"omevox/builder/define"
	"omevox/builder/volume"
)

type MatchKind uint8

const (
	MatchContains MatchKind = iota
	MatchSuffix
	MatchPrefix
)

type Pattern struct {
	Kind MatchKind
	Text string
}

func (p Pattern) Match(name string) bool {
	switch p.Kind {
	case MatchSuffix:
		return strings.HasSuffix(name, p.Text)
	case MatchPrefix:
		return strings.HasPrefix(name, p.Text)
	}
	return strings.Contains(name, p.Text)
}

// Classifier decides which blocks hide their neighbours. Names are matched
// without namespace and states: first the explicit set, then Patterns in
// order. Anything unmatched is solid.
type Classifier struct {
	NonSolid map[string]bool
	Patterns []Pattern

	memo sync.Map
}

// DefaultNonSolid and DefaultPatterns are the stock table.
var DefaultNonSolid = []string{
	"air", "cave_air", "void_air", "water", "lava", "barrier", "light", "structure_void",
	"snow", "ladder", "lever", "tripwire", "tripwire_hook", "redstone_wire", "repeater", "comparator",
	"cobweb", "fire", "soul_fire", "scaffolding", "bell", "lantern", "soul_lantern", "chain",
	"grass", "short_grass", "tall_grass", "fern", "large_fern", "dead_bush", "sugar_cane", "cactus",
	"bamboo", "kelp", "seagrass", "tall_seagrass", "lily_pad", "sea_pickle", "brown_mushroom", "red_mushroom", "wheat", "carrots", "potatoes", "beetroots", "cake", "flower_pot",
	"end_rod", "lightning_rod", "turtle_egg", "frogspawn", "hopper", "brewing_stand", "cauldron",
	"enchanting_table", "chest", "trapped_chest", "ender_chest", "beacon", "conduit", "daylight_detector",
}

var DefaultPatterns = []Pattern{
	{MatchSuffix, "_stairs"},
	{MatchSuffix, "_slab"},
	{MatchSuffix, "_fence"},
	{MatchSuffix, "_fence_gate"},
	{MatchSuffix, "_wall"},
	{MatchContains, "door"},
	{MatchContains, "pane"},
	{MatchContains, "sign"},
	{MatchContains, "torch"},
	{MatchContains, "button"},
	{MatchContains, "pressure_plate"},
	{MatchContains, "carpet"},
	{MatchContains, "rail"},
	{MatchContains, "flower"},
	{MatchContains, "sapling"},
	{MatchContains, "vine"},
	{MatchContains, "leaves"},
	{MatchContains, "glass"},
	{MatchContains, "bars"},
	{MatchSuffix, "_plant"},
	{MatchSuffix, "_coral"},
	{MatchSuffix, "_coral_fan"},
	{MatchSuffix, "_coral_wall_fan"},
	{MatchContains, "banner"},
	{MatchSuffix, "_bed"},
	{MatchSuffix, "_head"},
	{MatchContains, "skull"},
	{MatchContains, "candle"},
	{MatchSuffix, "_tulip"},
	{MatchPrefix, "potted_"},
	{MatchPrefix, "infested_"},
}

func DefaultClassifier() *Classifier {
	c := &Classifier{NonSolid: map[string]bool{}, Patterns: DefaultPatterns}
	for _, name := range DefaultNonSolid {
		c.NonSolid[name] = true
	}
	return c
}

func (c *Classifier) classify(name string) bool {
	if c.NonSolid[name] {
		return false
	}
	for _, p := range c.Patterns {
		if p.Match(name) {
			return false
		}
	}
	return true
}

// Solid reports whether id occludes. Air and null are never solid.
func (c *Classifier) Solid(id string) bool {
	if define.IsAir(id) {
		return false
	}
	if v, ok := c.memo.Load(id); ok {
		return v.(bool)
	}
	solid := c.classify(define.ParseBlockDescribe(id).BaseName())
	c.memo.Store(id, solid)
	return solid
}

type Hollowed struct {
	src volume.Volume
	cls *Classifier
}

// Hollow clears every voxel strictly inside v whose six neighbours are all
// solid. Face voxels are never touched.
func Hollow(v volume.Volume, cls *Classifier) volume.Volume {
	if cls == nil {
		cls = DefaultClassifier()
	}
	return &Hollowed{src: v, cls: cls}
}

func (h *Hollowed) Dims() volume.Dims { return h.src.Dims() }

var neighbours = [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

func (h *Hollowed) Block(index int) string {
	id := h.src.Block(index)
	d := h.src.Dims()
	x, y, z := d.Coords(index)
	if x == 0 || y == 0 || z == 0 || x == d.Width-1 || y == d.Height-1 || z == d.Length-1 {
		return id
	}
	if define.IsAir(id) {
		return id
	}
	for _, n := range neighbours {
		if !h.cls.Solid(h.src.Block(d.Index(x+n[0], y+n[1], z+n[2]))) {
			return id
		}
	}
	return define.AirBlock.String()
}
