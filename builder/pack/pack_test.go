package pack

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
	"go.uber.org/atomic"

	"omevox/builder/define"
	"omevox/builder/volume"
	errs "omevox/define"
)

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(b)
	}
	return out
}

func names(files map[string]string) []string {
	out := make([]string, 0, len(files))
	for n := range files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func stoneAt(d volume.Dims, cells ...[3]int) *volume.PaletteVolume {
	v := volume.NewPaletteVolume(d)
	v.Palette = append(v.Palette, "minecraft:stone")
	for _, c := range cells {
		v.Indices[d.Index(c[0], c[1], c[2])] = 1
	}
	return v
}

func filled(d volume.Dims) *volume.PaletteVolume {
	v := stoneAt(d)
	for i := range v.Indices {
		v.Indices[i] = 1
	}
	return v
}

func TestAssembleLayout(t *testing.T) {
	calls := atomic.NewInt64(0)
	data, report, err := Assemble(context.Background(), filled(volume.Dims{Width: 70, Height: 3, Length: 10}), Options{
		Name:     "castle",
		Progress: func(done, total int) { calls.Inc() },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 2, report.Structures)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 70*3*10, report.Blocks)
	assert.Equal(t, 2, report.Functions)
	assert.EqualValues(t, 2, calls.Load())

	files := unzip(t, data)
	assert.Equal(t, []string{
		"checksums.json",
		"functions/omevox/load.mcfunction",
		"functions/omevox/load_1.mcfunction",
		"manifest.json",
		"structures/omevox/chunk_0_0_0.mcstructure",
		"structures/omevox/chunk_1_0_0.mcstructure",
		"texts/en_US.lang",
		"texts/languages.json",
	}, names(files))
	assert.Equal(t, "structure load omevox:chunk_0_0_0 ~0 ~0 ~0\nstructure load omevox:chunk_1_0_0 ~64 ~0 ~0\n",
		files["functions/omevox/load_1.mcfunction"])
	assert.Equal(t, "function omevox/load_1\n", files["functions/omevox/load.mcfunction"])

	var sums map[string]string
	require.NoError(t, json.Unmarshal([]byte(files["checksums.json"]), &sums))
	for path, sum := range sums {
		want := blake3.Sum256([]byte(files[path]))
		assert.Equal(t, hex.EncodeToString(want[:]), sum, path)
	}
	assert.Equal(t, report.Checksums, sums)

	var m manifest
	require.NoError(t, json.Unmarshal([]byte(files["manifest.json"]), &m))
	assert.Equal(t, "castle", m.Header.Name)
	_, err = uuid.Parse(m.Header.UUID)
	assert.NoError(t, err)
	require.Len(t, m.Modules, 1)
	assert.NotEqual(t, m.Header.UUID, m.Modules[0].UUID)
}

func TestAssembleSkipsEmptyChunks(t *testing.T) {
	d := volume.Dims{Width: 128, Height: 1, Length: 1}
	_, report, err := Assemble(context.Background(), stoneAt(d, [3]int{100, 0, 0}), Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Structures)
	assert.Equal(t, 1, report.Blocks)
}

func TestAssembleBatchesAndBarriers(t *testing.T) {
	data, report, err := Assemble(context.Background(), filled(volume.Dims{Width: 4, Height: 4, Length: 4}), Options{
		Namespace:           "build",
		ChunkEdge:           2,
		BatchSize:           3,
		BelowBoundsBarriers: []define.Pos{{0, -1, 0}, {1, -1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, report.Structures)
	assert.Equal(t, 4, report.Functions)

	files := unzip(t, data)
	entry := strings.Split(strings.TrimSpace(files["functions/build/load.mcfunction"]), "\n")
	assert.Equal(t, []string{
		"fill ~0 ~-1 ~0 ~1 ~-1 ~0 minecraft:barrier",
		"function build/load_1",
		"function build/load_2",
		"function build/load_3",
	}, entry)
	assert.Len(t, strings.Split(strings.TrimSpace(files["functions/build/load_3.mcfunction"]), "\n"), 2)
}

func TestAssembleIsDeterministic(t *testing.T) {
	v := filled(volume.Dims{Width: 5, Height: 5, Length: 5})
	a, _, err := Assemble(context.Background(), v, Options{ChunkEdge: 2, Workers: 4})
	require.NoError(t, err)
	b, _, err := Assemble(context.Background(), v, Options{ChunkEdge: 2, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssembleErrors(t *testing.T) {
	_, _, err := Assemble(context.Background(), stoneAt(volume.Dims{Width: 3, Height: 3, Length: 3}), Options{})
	assert.ErrorIs(t, err, errs.ErrEmptyResult)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Assemble(ctx, filled(volume.Dims{Width: 3, Height: 3, Length: 3}), Options{})
	assert.ErrorIs(t, err, errs.ErrCancelled)
}
