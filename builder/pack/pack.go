// Package pack splits a volume into cubic chunks and ships them as a
// zipped behavior pack of .mcstructure files plus loader functions.
package pack

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"omevox/builder/compiler"
	"omevox/builder/define"
	"omevox/builder/structure"
	"omevox/builder/volume"
	errs "omevox/define"
)

const (
	DefaultChunkEdge = 64
	DefaultBatchSize = 256
	DefaultNamespace = "omevox"
)

// packNamespace seeds the deterministic manifest uuids.
var packNamespace = uuid.MustParse("5b0d3c0e-8f4a-4c1e-9a57-6f0c2d1e7a31")

type Options struct {
	Name        string
	Description string
	Namespace   string
	// ChunkEdge is the cube edge each structure covers, at most
	// structure.MaxHorizontal.
	ChunkEdge int
	// BatchSize is the number of load lines per function file.
	BatchSize int
	Workers   int
	// BelowBoundsBarriers are placed by the entry function before any
	// structure is loaded.
	BelowBoundsBarriers []define.Pos
	Progress            func(done, total int)
}

func (o *Options) defaults() {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.Name == "" {
		o.Name = o.Namespace
	}
	if o.ChunkEdge <= 0 {
		o.ChunkEdge = DefaultChunkEdge
	}
	if o.ChunkEdge > structure.MaxHorizontal {
		o.ChunkEdge = structure.MaxHorizontal
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Progress == nil {
		o.Progress = func(int, int) {}
	}
}

type Report struct {
	Chunks     int
	Structures int
	Skipped    int
	Blocks     int
	Functions  int
	Checksums  map[string]string
}

type chunkResult struct {
	name   string
	origin [3]int32
	data   []byte
	blocks int
}

type cell struct {
	origin [3]int
	size   volume.Dims
}

func partition(d volume.Dims, edge int) []cell {
	var out []cell
	for y := 0; y < d.Height; y += edge {
		for z := 0; z < d.Length; z += edge {
			for x := 0; x < d.Width; x += edge {
				out = append(out, cell{
					origin: [3]int{x, y, z},
					size: volume.Dims{
						Width:  min(edge, d.Width-x),
						Height: min(edge, d.Height-y),
						Length: min(edge, d.Length-z),
					},
				})
			}
		}
	}
	return out
}

// Assemble compiles every chunk of v in parallel and zips the result.
// Chunks with nothing to place are skipped; if all are, the error is
// define.ErrEmptyResult. Progress may be called from several goroutines.
func Assemble(ctx context.Context, v volume.Volume, opts Options) ([]byte, *Report, error) {
	opts.defaults()
	cells := partition(v.Dims(), opts.ChunkEdge)
	results := make([]*chunkResult, len(cells))
	done := atomic.NewInt64(0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range cells {
		i, c := i, c
		g.Go(func() error {
			r, err := buildChunk(gctx, v, c, opts.ChunkEdge)
			if err != nil {
				return err
			}
			results[i] = r
			opts.Progress(int(done.Inc()), len(cells))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report := &Report{Chunks: len(cells), Checksums: map[string]string{}}
	files := map[string][]byte{}
	var loads []string
	for _, r := range results {
		if r == nil {
			report.Skipped++
			continue
		}
		path := fmt.Sprintf("structures/%s/%s.mcstructure", opts.Namespace, r.name)
		files[path] = r.data
		sum := blake3.Sum256(r.data)
		report.Checksums[path] = hex.EncodeToString(sum[:])
		report.Structures++
		report.Blocks += r.blocks
		loads = append(loads, fmt.Sprintf("structure load %s:%s ~%d ~%d ~%d", opts.Namespace, r.name, r.origin[0], r.origin[1], r.origin[2]))
	}
	if report.Structures == 0 {
		return nil, nil, fmt.Errorf("%w: every chunk was empty", errs.ErrEmptyResult)
	}

	var entry []string
	for _, c := range compiler.Barriers(opts.BelowBoundsBarriers, compiler.Options{Relative: true}) {
		entry = append(entry, c.String())
	}
	for n, start := 1, 0; start < len(loads); n, start = n+1, start+opts.BatchSize {
		end := min(start+opts.BatchSize, len(loads))
		name := fmt.Sprintf("load_%d", n)
		files[fmt.Sprintf("functions/%s/%s.mcfunction", opts.Namespace, name)] = []byte(strings.Join(loads[start:end], "\n") + "\n")
		entry = append(entry, fmt.Sprintf("function %s/%s", opts.Namespace, name))
		report.Functions++
	}
	files[fmt.Sprintf("functions/%s/load.mcfunction", opts.Namespace)] = []byte(strings.Join(entry, "\n") + "\n")
	report.Functions++

	checksums, err := json.MarshalIndent(report.Checksums, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	files["checksums.json"] = checksums
	manifest, err := Manifest(opts.Name, opts.Description, report.Checksums)
	if err != nil {
		return nil, nil, err
	}
	files["manifest.json"] = manifest
	files["texts/languages.json"] = []byte(`["en_US"]` + "\n")
	files["texts/en_US.lang"] = []byte(fmt.Sprintf("pack.name=%s\npack.description=%s\n", opts.Name, opts.Description))

	out, err := zipFiles(files)
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

func buildChunk(ctx context.Context, v volume.Volume, c cell, edge int) (*chunkResult, error) {
	w := volume.NewWindow(v, c.origin, c.size)
	cmds, err := compiler.Compile(ctx, w, compiler.Options{
		Offset: define.Pos{define.PE(c.origin[0]), define.PE(c.origin[1]), define.PE(c.origin[2])},
	})
	if errors.Is(err, errs.ErrEmptyResult) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := structure.Build(cmds)
	if err != nil {
		return nil, err
	}
	data, err := f.Encode()
	if err != nil {
		return nil, err
	}
	return &chunkResult{
		name:   fmt.Sprintf("chunk_%d_%d_%d", c.origin[0]/edge, c.origin[1]/edge, c.origin[2]/edge),
		origin: f.Origin,
		data:   data,
		blocks: f.Blocks(),
	}, nil
}

type manifestHeader struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	UUID             string `json:"uuid"`
	Version          [3]int `json:"version"`
	MinEngineVersion [3]int `json:"min_engine_version"`
}

type manifestModule struct {
	Type    string `json:"type"`
	UUID    string `json:"uuid"`
	Version [3]int `json:"version"`
}

type manifest struct {
	FormatVersion int              `json:"format_version"`
	Header        manifestHeader   `json:"header"`
	Modules       []manifestModule `json:"modules"`
}

// Manifest renders manifest.json. The uuids derive from the name and the
// structure checksums, so the same content always gets the same ids.
func Manifest(name, description string, checksums map[string]string) ([]byte, error) {
	paths := make([]string, 0, len(checksums))
	for p := range checksums {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	h := blake3.New()
	h.Write([]byte(name))
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte(checksums[p]))
	}
	seed := h.Sum(nil)
	m := manifest{
		FormatVersion: 2,
		Header: manifestHeader{
			Name:             name,
			Description:      description,
			UUID:             uuid.NewSHA1(packNamespace, append([]byte("header:"), seed...)).String(),
			Version:          [3]int{1, 0, 0},
			MinEngineVersion: [3]int{1, 19, 0},
		},
		Modules: []manifestModule{{
			Type:    "data",
			UUID:    uuid.NewSHA1(packNamespace, append([]byte("data:"), seed...)).String(),
			Version: [3]int{1, 0, 0},
		}},
	}
	return json.MarshalIndent(m, "", "  ")
}

func zipFiles(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: n, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[n]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
