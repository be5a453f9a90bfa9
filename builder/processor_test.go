package builder

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder/define"
	"omevox/builder/loader/bdump"
	"omevox/builder/loader/region"
	"omevox/config"
	errs "omevox/define"
	"omevox/nbt"
)

type stages struct {
	mu   sync.Mutex
	seen []string
}

func (s *stages) Report(stage, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, stage+": "+msg)
}

func (s *stages) has(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.seen {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	logger, _ := test.NewNullLogger()
	b, err := New(config.Default(), logger)
	require.NoError(t, err)
	return b
}

// legacySchematic is a w x 1 x 1 row of numeric id/data pairs.
func legacySchematic(t *testing.T, ids, data []byte) []byte {
	t.Helper()
	root := nbt.NewCompound().
		Set("Width", nbt.Short(len(ids))).
		Set("Height", nbt.Short(1)).
		Set("Length", nbt.Short(1)).
		Set("Materials", nbt.String("Alpha")).
		Set("Blocks", nbt.ByteArray(ids)).
		Set("Data", nbt.ByteArray(data))
	b, err := nbt.EncodeCompressed("Schematic", root)
	require.NoError(t, err)
	return b
}

func TestConvertTranslatedSchematicToCommands(t *testing.T) {
	b := newBuilder(t)
	report := &stages{}
	out, err := b.Convert(context.Background(), Request{
		Name:      "row.schematic",
		Data:      legacySchematic(t, []byte{1, 1, 35}, []byte{0, 0, 14}),
		Translate: true,
		Offset:    define.Pos{10, 64, 10},
	}, report)
	require.NoError(t, err)

	assert.Equal(t, InputSchematic, out.Input)
	assert.Equal(t, "fill 10 64 10 11 64 10 minecraft:stone\nsetblock 12 64 10 minecraft:wool[color=red]\n", string(out.Data))
	assert.Equal(t, 3, out.Blocks)
	for _, stage := range []string{errs.StageDetect, errs.StageIngest, errs.StageTranslate, errs.StageCompile} {
		assert.True(t, report.has(stage+": "), stage)
	}
}

func TestConvertWithoutTranslationKeepsLegacyKeys(t *testing.T) {
	out, err := newBuilder(t).Convert(context.Background(), Request{
		Data:     legacySchematic(t, []byte{1}, []byte{0}),
		Relative: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "setblock ~0 ~0 ~0 legacy_1:0\n", string(out.Data))
}

func TestConvertFailureIsStageError(t *testing.T) {
	report := &stages{}
	_, err := newBuilder(t).Convert(context.Background(), Request{Data: []byte{8, 0, 0}}, report)
	require.Error(t, err)
	var se *errs.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errs.StageIngest, se.Stage)
	assert.ErrorIs(t, err, errs.ErrMalformedTag)
	assert.True(t, report.has(errs.StageIngest+": failed"))

	_, err = newBuilder(t).Convert(context.Background(), Request{}, nil)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errs.StageDetect, se.Stage)

	_, err = newBuilder(t).Convert(context.Background(), Request{
		Data:   legacySchematic(t, []byte{1}, []byte{0}),
		Output: "gif",
	}, nil)
	assert.ErrorContains(t, err, "unknown output")

	_, err = newBuilder(t).Convert(context.Background(), Request{
		Data:   legacySchematic(t, []byte{0, 0}, []byte{0, 0}),
		Output: OutputStructure,
	}, nil)
	assert.ErrorIs(t, err, errs.ErrEmptyResult)
}

func TestConvertBDXSkipsTranslation(t *testing.T) {
	data, err := bdump.Encode("someone", []bdump.Placement{
		{Pos: define.Pos{5, 1, 5}, Name: "stone"},
		{Pos: define.Pos{6, 1, 5}, Name: "stone"},
		{Pos: define.Pos{5, 2, 5}, Name: "wool", Data: 14},
	})
	require.NoError(t, err)
	out, err := newBuilder(t).Convert(context.Background(), Request{Name: "x.bdx", Data: data, Translate: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, InputBDX, out.Input)
	assert.Equal(t, "fill 5 1 5 6 1 5 minecraft:stone\nsetblock 5 2 5 minecraft:wool[data=14]\n", string(out.Data))
}

func stoneRegion(t *testing.T) []byte {
	t.Helper()
	section := nbt.NewCompound().
		Set("Y", nbt.Byte(0)).
		Set("block_states", nbt.NewCompound().Set("palette", nbt.NewList(nbt.TagCompound,
			nbt.NewCompound().Set("Name", nbt.String("minecraft:stone")))))
	chunk := nbt.NewCompound().
		Set("xPos", nbt.Int(0)).
		Set("zPos", nbt.Int(0)).
		Set("sections", nbt.NewList(nbt.TagCompound, section))
	rb := region.NewBuilder()
	require.NoError(t, rb.Put(0, 0, chunk))
	return rb.Bytes()
}

func TestConvertRegionArchive(t *testing.T) {
	box, err := ParseBox("2 3 4, 3 3 4")
	require.NoError(t, err)
	report := &stages{}
	out, err := newBuilder(t).Convert(context.Background(), Request{
		Name:      "r.0.0.mca",
		Data:      stoneRegion(t),
		Box:       box,
		Translate: true,
	}, report)
	require.NoError(t, err)
	assert.Equal(t, InputRegion, out.Input)
	assert.Equal(t, "fill 2 3 4 3 3 4 minecraft:stone\n", string(out.Data))
	assert.True(t, report.has(errs.StageExtract+": 1 chunks"))

	_, err = newBuilder(t).Convert(context.Background(), Request{Name: "r.0.0.mca", Data: stoneRegion(t)}, nil)
	assert.ErrorIs(t, err, ErrNoBox)

	_, err = newBuilder(t).Convert(context.Background(), Request{Name: "r.0.0.mcr", Data: stoneRegion(t), Box: box}, nil)
	assert.ErrorIs(t, err, errs.ErrLegacyArchiveUnsupported)
}

func TestConvertRegionRelativeAndStructureOrigin(t *testing.T) {
	box, err := ParseBox("2 3 4, 3 3 4")
	require.NoError(t, err)
	b := newBuilder(t)

	out, err := b.Convert(context.Background(), Request{
		Name:     "r.0.0.mca",
		Data:     stoneRegion(t),
		Box:      box,
		Relative: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fill ~0 ~0 ~0 ~1 ~0 ~0 minecraft:stone\n", string(out.Data))

	out, err = b.Convert(context.Background(), Request{
		Name:     "r.0.0.mca",
		Data:     stoneRegion(t),
		Box:      box,
		Relative: true,
		Offset:   define.Pos{0, 10, 0},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fill ~0 ~10 ~0 ~1 ~10 ~0 minecraft:stone\n", string(out.Data))

	out, err = b.Convert(context.Background(), Request{
		Name:   "r.0.0.mca",
		Data:   stoneRegion(t),
		Box:    box,
		Output: OutputStructure,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Structure)
	assert.Equal(t, [3]int32{2, 3, 4}, out.Structure.Origin)
	assert.Equal(t, 2, out.Structure.Blocks())
}

func TestConvertPathReadsRegionDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, region.RegionFileName(0, 0)), stoneRegion(t), 0o644))
	box, err := ParseBox("0 0 0 0 1 0")
	require.NoError(t, err)
	out, err := newBuilder(t).ConvertPath(context.Background(), dir, Request{Box: box}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fill 0 0 0 0 1 0 minecraft:stone\n", string(out.Data))
}

func TestConvertStructureAndPack(t *testing.T) {
	b := newBuilder(t)
	input := legacySchematic(t, []byte{1, 1, 1, 1}, []byte{0, 0, 0, 0})

	out, err := b.Convert(context.Background(), Request{Data: input, Translate: true, Output: OutputStructure}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Structure)
	assert.Equal(t, 4, out.Structure.Blocks())

	out, err = b.Convert(context.Background(), Request{Data: input, Translate: true, Output: OutputPack, Namespace: "row"}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Pack)
	assert.Equal(t, 1, out.Pack.Structures)
	zr, err := zip.NewReader(bytes.NewReader(out.Data), int64(len(out.Data)))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["manifest.json"])
	assert.True(t, names["structures/row/chunk_0_0_0.mcstructure"])
}

func TestConvertScriptAndBDX(t *testing.T) {
	b := newBuilder(t)
	input := legacySchematic(t, []byte{1, 0, 1}, []byte{0, 0, 0})

	out, err := b.Convert(context.Background(), Request{Data: input, Translate: true, Output: OutputScript, Offset: define.Pos{0, 10, 0}}, nil)
	require.NoError(t, err)
	text := string(out.Data)
	assert.True(t, strings.HasPrefix(text, "tp @s 16 128 16\n"), text)
	assert.Contains(t, text, "setblock 0 10 0 minecraft:stone\n")
	assert.Contains(t, text, "setblock 2 10 0 minecraft:stone\n")
	assert.Equal(t, 2, out.Blocks)

	out, err = b.Convert(context.Background(), Request{Data: input, Translate: true, Output: OutputBDX, Author: "me"}, nil)
	require.NoError(t, err)
	assert.True(t, bdump.IsBDX(out.Data))
	assert.Equal(t, 2, out.Blocks)
}

func TestConvertTransforms(t *testing.T) {
	input := legacySchematic(t, []byte{1, 12}, []byte{0, 0})
	out, err := newBuilder(t).Convert(context.Background(), Request{
		Data:      input,
		Translate: true,
		Rotate:    90,
		Gravity:   true,
	}, nil)
	require.NoError(t, err)
	// a 2x1x1 row turned a quarter becomes 1x1x2; the sand needs a barrier
	// below the volume, placed first
	lines := strings.Split(strings.TrimSpace(string(out.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "setblock 0 -1 1 minecraft:barrier", lines[0])
	assert.Contains(t, lines, "setblock 0 0 0 minecraft:stone")
	assert.Contains(t, lines, "setblock 0 0 1 minecraft:sand")

	_, err = newBuilder(t).Convert(context.Background(), Request{Data: input, Rotate: 45}, nil)
	var se *errs.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errs.StageTransform, se.Stage)
}

func TestRegionCoordsAndParsing(t *testing.T) {
	rx, rz := RegionCoords("/w/region/r.-1.3.mca")
	assert.Equal(t, [2]int{-1, 3}, [2]int{rx, rz})
	rx, rz = RegionCoords("whatever.mca")
	assert.Equal(t, [2]int{0, 0}, [2]int{rx, rz})

	_, err := ParseBox("1 2 3")
	assert.Error(t, err)
	p, err := ParsePos("1,-2, 3")
	require.NoError(t, err)
	assert.Equal(t, define.Pos{1, -2, 3}, p)
	box, err := ParseBox("  2,3,4\t 5 6 7 ")
	require.NoError(t, err)
	assert.Equal(t, [2]define.Pos{{2, 3, 4}, {5, 6, 7}}, *box)
	_, err = ParsePos("1 x 3")
	assert.Error(t, err)
}
