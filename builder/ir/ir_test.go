package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder/define"
	"omevox/builder/volume"
)

func TestSetAndGetAcrossPromotion(t *testing.T) {
	ir := NewIR(nil)
	stone := define.ParseBlockDescribe("minecraft:stone")
	for x := define.PE(0); x < 16; x++ {
		for z := define.PE(0); z < 16; z++ {
			ir.SetBlock(x, 3, z, stone)
		}
	}
	// past the sparse threshold, the sub chunk is dense now
	ir.SetBlockString(5, 3, 5, "minecraft:dirt")
	assert.Equal(t, "minecraft:dirt", ir.GetBlock(5, 3, 5))
	assert.Equal(t, "minecraft:stone", ir.GetBlock(15, 3, 15))
	assert.Equal(t, "", ir.GetBlock(15, 4, 15))

	ops := ir.Chunks[[2]define.PE{0, 0}].GetOps(ir.ID2Block)
	assert.Len(t, *ops.NormalOps, 256)
}

func TestSparseOverwriteAndNegativeCoords(t *testing.T) {
	ir := NewIR(nil)
	ir.SetBlockString(-1, -20, -17, "minecraft:stone")
	ir.SetBlockString(-1, -20, -17, "minecraft:glass")
	ir.SetBlockString(2, 5, 3, "minecraft:air")
	assert.Equal(t, "minecraft:glass", ir.GetBlock(-1, -20, -17))

	min, max, ok := ir.Bounds()
	require.True(t, ok)
	assert.Equal(t, define.Pos{-1, -20, -17}, min)
	assert.Equal(t, min, max)

	ops := ir.Chunks[[2]define.PE{-1, -2}].GetOps(ir.ID2Block)
	require.Len(t, *ops.NormalOps, 1)
	assert.Equal(t, define.Pos{-1, -20, -17}, (*ops.NormalOps)[0].Pos)
}

func TestVolumeViewOverBoundingBox(t *testing.T) {
	ir := NewIR(nil)
	ir.SetBlockString(10, 64, 10, "minecraft:stone")
	ir.SetBlockString(12, 65, 11, "minecraft:oak_log[axis=y]")
	assert.Equal(t, volume.Dims{Width: 3, Height: 2, Length: 2}, ir.Dims())
	assert.Equal(t, "minecraft:stone", volume.At(ir, 0, 0, 0))
	assert.Equal(t, "minecraft:oak_log[axis=y]", volume.At(ir, 2, 1, 1))
	assert.Equal(t, 2, volume.Occupied(ir))
}

func TestFromVolumeKeepsVoxels(t *testing.T) {
	d := volume.Dims{Width: 3, Height: 2, Length: 2}
	src := volume.Func{Size: d, Lookup: func(i int) string {
		if i%2 == 0 {
			return "minecraft:stone"
		}
		return ""
	}}
	ir := FromVolume(src, define.Pos{100, 0, -50})
	assert.Equal(t, d, ir.Dims())
	assert.True(t, volume.Equal(src, ir))
}

func TestAnchoredChunkSnakeOrder(t *testing.T) {
	ir := NewIR(nil)
	for _, p := range [][2]define.PE{{0, 0}, {0, 40}, {40, 0}, {40, 40}} {
		ir.SetBlockString(p[0], 0, p[1], "minecraft:stone")
	}
	anchored := ir.GetAnchoredChunk()
	require.Len(t, anchored, 8)
	var anchors [][2]define.PE
	for _, a := range anchored {
		if a.C == nil {
			anchors = append(anchors, a.MovePos)
		}
	}
	assert.Equal(t, [][2]define.PE{{16, 16}, {16, 48}, {48, 48}, {48, 16}}, anchors)
}
