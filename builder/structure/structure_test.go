package structure

import (
	"testing"

	tnbt "github.com/sandertv/gophertunnel/minecraft/nbt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder/compiler"
	"omevox/builder/define"
	errs "omevox/define"
	"omevox/nbt"
)

type decodedEntry struct {
	Name    string                 `nbt:"name"`
	States  map[string]interface{} `nbt:"states"`
	Version int32                  `nbt:"version"`
}

type decodedFile struct {
	FormatVersion int32   `nbt:"format_version"`
	Size          []int32 `nbt:"size"`
	Structure     struct {
		BlockIndices [][]int32               `nbt:"block_indices"`
		Entities     []map[string]interface{} `nbt:"entities"`
		Palette      struct {
			Default struct {
				BlockPalette      []decodedEntry         `nbt:"block_palette"`
				BlockPositionData map[string]interface{} `nbt:"block_position_data"`
			} `nbt:"default"`
		} `nbt:"palette"`
	} `nbt:"structure"`
	Origin []int32 `nbt:"structure_world_origin"`
}

const door = "minecraft:oak_door[direction=3,open_bit=true,upper_block_bit=false]"

func tenVoxels(t *testing.T) []define.Command {
	t.Helper()
	cmds, err := compiler.ParseCommands(`
fill 10 64 20 13 64 20 minecraft:stone
fill 10 65 20 12 65 20 minecraft:oak_log[axis=y]
fill 10 64 21 12 64 21 ` + door)
	require.NoError(t, err)
	return cmds
}

func TestBuildThreeEntryPalette(t *testing.T) {
	f, err := Build(tenVoxels(t))
	require.NoError(t, err)

	assert.Equal(t, [3]int32{4, 2, 2}, f.Size)
	assert.Equal(t, [3]int32{10, 64, 20}, f.Origin)
	require.Len(t, f.Palette, 3)
	assert.Equal(t, "minecraft:stone", f.Palette[0].Name)
	assert.Equal(t, 10, f.Blocks())
	assert.Len(t, f.Layers[0], 16)
	assert.Len(t, f.Layers[1], 16)
	for _, k := range f.Layers[1] {
		assert.Equal(t, int32(-1), k)
	}

	assert.Equal(t, "minecraft:stone", f.At(3, 0, 0).Name)
	assert.Nil(t, f.At(3, 1, 0))
	assert.Equal(t, "minecraft:oak_door", f.At(0, 0, 1).Name)
	// x-major, z fastest
	assert.Equal(t, int32(0), f.Layers[0][0])
	assert.Equal(t, int32(2), f.Layers[0][1])
	assert.Equal(t, int32(1), f.Layers[0][2])
}

func TestTypedStates(t *testing.T) {
	e := NewPaletteEntry(door)
	assert.Equal(t, "minecraft:oak_door", e.Name)
	assert.Equal(t, []State{
		{Key: "direction", Value: nbt.Int(3)},
		{Key: "open_bit", Value: nbt.Byte(1)},
		{Key: "upper_block_bit", Value: nbt.Byte(0)},
	}, e.States)

	e = NewPaletteEntry("minecraft:oak_log[axis=y]")
	assert.Equal(t, []State{{Key: "axis", Value: nbt.String("y")}}, e.States)
}

func TestEncodeDecodesWithReferenceReader(t *testing.T) {
	f, err := Build(tenVoxels(t))
	require.NoError(t, err)
	data, err := f.Encode()
	require.NoError(t, err)

	var got decodedFile
	require.NoError(t, tnbt.UnmarshalEncoding(data, &got, tnbt.LittleEndian))
	assert.Equal(t, int32(FormatVersion), got.FormatVersion)
	assert.Equal(t, []int32{4, 2, 2}, got.Size)
	assert.Equal(t, []int32{10, 64, 20}, got.Origin)
	require.Len(t, got.Structure.BlockIndices, 2)
	assert.Equal(t, f.Layers[0], got.Structure.BlockIndices[0])
	assert.Empty(t, got.Structure.Entities)

	pal := got.Structure.Palette.Default.BlockPalette
	require.Len(t, pal, 3)
	assert.Equal(t, "minecraft:oak_door", pal[2].Name)
	assert.Equal(t, int32(BlockVersion), pal[2].Version)
	assert.EqualValues(t, 3, pal[2].States["direction"])
	assert.EqualValues(t, 1, pal[2].States["open_bit"])
	assert.Equal(t, "y", pal[1].States["axis"])
}

func TestBuildLimits(t *testing.T) {
	_, err := Build([]define.Command{define.NewCommand(define.Pos{0, 0, 0}, define.Pos{250, 0, 0}, "minecraft:stone")})
	assert.ErrorIs(t, err, errs.ErrBoundsExceeded)

	f, err := Build([]define.Command{define.NewCommand(define.Pos{0, 0, 0}, define.Pos{249, 300, 0}, "minecraft:stone")})
	require.NoError(t, err)
	assert.Equal(t, int32(301), f.Size[1])

	_, err = Build([]define.Command{define.NewCommand(define.Pos{0, 0, 0}, define.Pos{1, 1, 1}, "minecraft:air")})
	assert.ErrorIs(t, err, errs.ErrEmptyResult)
}
