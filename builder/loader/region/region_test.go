package region

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder/define"
	"omevox/builder/stream"
	errs "omevox/define"
	"omevox/nbt"
	"omevox/packed"
)

func entry(name string, props map[string]string) *nbt.Compound {
	c := nbt.NewCompound().Set("Name", nbt.String(name))
	if len(props) > 0 {
		pc := nbt.NewCompound()
		for k, v := range props {
			pc.Set(k, nbt.String(v))
		}
		c.Set("Properties", pc)
	}
	return c
}

func palette(names ...string) *nbt.List {
	items := make([]nbt.Tag, len(names))
	for i, n := range names {
		items[i] = entry(n, nil)
	}
	return nbt.NewList(nbt.TagCompound, items...)
}

func modernSection(y int8, pal *nbt.List, words []int64) *nbt.Compound {
	states := nbt.NewCompound().Set("palette", pal)
	if words != nil {
		states.Set("data", nbt.LongArray(words))
	}
	return nbt.NewCompound().Set("Y", nbt.Byte(y)).Set("block_states", states)
}

func modernChunk(cx, cz int32, sections ...nbt.Tag) *nbt.Compound {
	return nbt.NewCompound().
		Set("xPos", nbt.Int(cx)).
		Set("zPos", nbt.Int(cz)).
		Set("sections", nbt.NewList(nbt.TagCompound, sections...))
}

func worldOf(t *testing.T, chunks map[[2]int]*nbt.Compound) *World {
	t.Helper()
	builders := map[[2]int]*Builder{}
	for pos, root := range chunks {
		key := [2]int{floorDiv(pos[0], ChunksPerSide), floorDiv(pos[1], ChunksPerSide)}
		if builders[key] == nil {
			builders[key] = NewBuilder()
		}
		require.NoError(t, builders[key].Put(pos[0], pos[1], root))
	}
	p := MemoryProvider{}
	for key, b := range builders {
		p[key] = b.Bytes()
	}
	logger, _ := test.NewNullLogger()
	return NewWorld(p, logger)
}

type capture struct {
	meta   *stream.Metadata
	blocks []stream.Block
	done   bool
	err    error
}

func listen(e *stream.Emitter) *capture {
	c := &capture{}
	e.OnMetadata(func(m stream.Metadata) { c.meta = &m })
	e.OnBlock(func(b stream.Block) { c.blocks = append(c.blocks, b) })
	e.OnComplete(func() { c.done = true })
	e.OnError(func(err error) { c.err = err })
	return c
}

func TestOpenRejects(t *testing.T) {
	_, err := Open("r.0.0.mca", make([]byte, 100))
	assert.ErrorIs(t, err, errs.ErrMalformedTag)

	_, err = Open("r.0.0.mcr", make([]byte, headerSize))
	assert.ErrorIs(t, err, errs.ErrLegacyArchiveUnsupported)

	gz := append([]byte{0x1f, 0x8b}, make([]byte, headerSize)...)
	_, err = Open("chunk.dat", gz)
	assert.ErrorIs(t, err, errs.ErrLegacyArchiveUnsupported)

	a, err := Open("r.0.0.mca", make([]byte, headerSize))
	require.NoError(t, err)
	root, err := a.ReadChunk(3, 4)
	assert.NoError(t, err)
	assert.Nil(t, root)
}

func TestAbsentChunkIsAir(t *testing.T) {
	w := worldOf(t, nil)
	assert.Equal(t, "minecraft:air", w.BlockAt(5, 64, 5))
	assert.Equal(t, "minecraft:air", w.BlockAt(-300, -10, 900))
}

func TestTwoEntryPaletteFourBits(t *testing.T) {
	values := make([]uint32, sectionVolume)
	for y := 0; y < 2; y++ {
		for z := 0; z < 2; z++ {
			for x := 0; x < 2; x++ {
				values[sectionIndex(x, y, z)] = 1
			}
		}
	}
	words, err := packed.EncodeAligned(values, 4)
	require.NoError(t, err)
	require.Len(t, words, 256)

	w := worldOf(t, map[[2]int]*nbt.Compound{
		{0, 0}: modernChunk(0, 0, modernSection(0, palette("minecraft:air", "minecraft:stone"), words)),
	})
	e := stream.NewEmitter()
	got := listen(e)
	require.NoError(t, w.Extract(context.Background(), NewBox(define.Pos{0, 0, 0}, define.Pos{3, 3, 3}), e))

	require.NotNil(t, got.meta)
	assert.Equal(t, 4, got.meta.Dims.Width)
	assert.True(t, got.done)
	assert.Len(t, got.blocks, 8)
	for _, b := range got.blocks {
		assert.Equal(t, "minecraft:stone", b.ID)
		assert.Less(t, b.X, 2)
		assert.Less(t, b.Y, 2)
		assert.Less(t, b.Z, 2)
	}
}

func TestSingleEntryPaletteSkipsData(t *testing.T) {
	w := worldOf(t, map[[2]int]*nbt.Compound{
		{0, 0}: modernChunk(0, 0, modernSection(-1, palette("minecraft:deepslate"), nil)),
	})
	assert.Equal(t, "minecraft:deepslate", w.BlockAt(0, -16, 0))
	assert.Equal(t, "minecraft:deepslate", w.BlockAt(15, -1, 15))
	assert.Equal(t, "minecraft:air", w.BlockAt(0, 0, 0))
}

func TestFlatteningLayouts(t *testing.T) {
	names := []string{"minecraft:air"}
	for i := 1; i < 17; i++ {
		names = append(names, "minecraft:wool_"+string(rune('a'+i)))
	}
	values := make([]uint32, sectionVolume)
	for i := range values {
		values[i] = uint32(i % len(names))
	}
	spanning, err := packed.Encode(values, 5)
	require.NoError(t, err)
	aligned, err := packed.EncodeAligned(values, 5)
	require.NoError(t, err)
	require.NotEqual(t, len(spanning), len(aligned))

	for label, words := range map[string][]int64{"spanning": spanning, "aligned": aligned} {
		sec := nbt.NewCompound().
			Set("Y", nbt.Byte(0)).
			Set("Palette", palette(names...)).
			Set("BlockStates", nbt.LongArray(words))
		root := nbt.NewCompound().Set("Level", nbt.NewCompound().
			Set("Sections", nbt.NewList(nbt.TagCompound, sec)))
		c, err := ParseChunk(root)
		require.NoError(t, err, label)
		for _, i := range []int{0, 1, 17, 300, 4095} {
			x, y, z := i&15, i>>8, (i>>4)&15
			assert.Equal(t, names[i%len(names)], c.Block(x, y, z), label)
		}
	}
}

func TestLegacySection(t *testing.T) {
	blocks := make([]byte, sectionVolume)
	data := make([]byte, sectionVolume/2)
	add := make([]byte, sectionVolume/2)
	blocks[sectionIndex(1, 0, 0)] = 35
	data[0] = 0xe0 // index 1, high nibble
	blocks[sectionIndex(2, 0, 0)] = 1
	add[1] = 0x01 // index 2, low nibble
	sec := nbt.NewCompound().
		Set("Y", nbt.Byte(4)).
		Set("Blocks", nbt.ByteArray(blocks)).
		Set("Data", nbt.ByteArray(data)).
		Set("Add", nbt.ByteArray(add))
	root := nbt.NewCompound().Set("Level", nbt.NewCompound().
		Set("Sections", nbt.NewList(nbt.TagCompound, sec)))

	c, err := ParseChunk(root)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:air", c.Block(0, 64, 0))
	assert.Equal(t, "legacy_35:14", c.Block(1, 64, 0))
	assert.Equal(t, "legacy_257:0", c.Block(2, 64, 0))
}

func TestNegativeCoordinates(t *testing.T) {
	w := worldOf(t, map[[2]int]*nbt.Compound{
		{-1, -1}: modernChunk(-1, -1, modernSection(0, palette("minecraft:sand"), nil)),
	})
	assert.Equal(t, "minecraft:sand", w.BlockAt(-1, 3, -1))
	assert.Equal(t, "minecraft:sand", w.BlockAt(-16, 0, -16))
	assert.Equal(t, "minecraft:air", w.BlockAt(0, 3, 0))
}

func TestCorruptChunkIsLoggedAsAir(t *testing.T) {
	data := make([]byte, headerSize+SectorSize)
	binary.BigEndian.PutUint32(data[0:], 2<<8|1)
	binary.BigEndian.PutUint32(data[headerSize:], 6)
	data[headerSize+4] = compressionZlib
	copy(data[headerSize+5:], []byte{1, 2, 3, 4, 5})

	logger, hook := test.NewNullLogger()
	w := NewWorld(MemoryProvider{{0, 0}: data}, logger)
	assert.Equal(t, "minecraft:air", w.BlockAt(0, 0, 0))

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	err, _ := entries[0].Data[logrus.ErrorKey].(error)
	assert.ErrorIs(t, err, errs.ErrRegionUnavailable)
	assert.Equal(t, "0,0", entries[0].Data["chunk"])

	// cached: no second warning
	w.BlockAt(1, 0, 1)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestExtractCancelled(t *testing.T) {
	w := worldOf(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := stream.NewEmitter()
	got := listen(e)
	err := w.Extract(ctx, NewBox(define.Pos{0, 0, 0}, define.Pos{1, 1, 1}), e)
	assert.ErrorIs(t, err, errs.ErrCancelled)
	assert.ErrorIs(t, got.err, errs.ErrCancelled)
	assert.False(t, got.done)
}

func TestBoxNormalizes(t *testing.T) {
	b := NewBox(define.Pos{5, -2, 3}, define.Pos{1, 4, 3})
	assert.Equal(t, define.Pos{1, -2, 3}, b.Min)
	assert.Equal(t, define.Pos{5, 4, 3}, b.Max)
	d := b.Dims()
	assert.Equal(t, [3]int{5, 7, 1}, [3]int{d.Width, d.Height, d.Length})
}
