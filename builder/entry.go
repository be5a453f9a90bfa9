package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"omevox/builder/define"
	"omevox/builder/transform"
	"omevox/builder/translator"
	"omevox/config"
	errs "omevox/define"
)

// Builder owns a configured Processor and the logger jobs write to.
type Builder struct {
	Config    *config.Config
	Log       logrus.FieldLogger
	processor *Processor
}

func New(cfg *config.Config, log logrus.FieldLogger) (*Builder, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	rules, err := translator.LoadRules(cfg.Translate.Rules)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	cls := transform.DefaultClassifier()
	for _, name := range cfg.Hollow.NonSolid {
		cls.NonSolid[define.ParseBlockDescribe(name).BaseName()] = true
	}
	log.WithField("rules", len(rules.Names())).Debug("translation rules loaded")
	return &Builder{
		Config: cfg,
		Log:    log,
		processor: &Processor{
			Rules:      rules,
			Classifier: cls,
			Log:        log,
			Workers:    cfg.Pack.Workers,
			Namespace:  cfg.Pack.Namespace,
			ChunkEdge:  cfg.Pack.ChunkEdge,
			BatchSize:  cfg.Pack.BatchSize,
		},
	}, nil
}

func (o *Builder) Processor() *Processor {
	return o.processor
}

func (o *Builder) Convert(ctx context.Context, req Request, report errs.Reporter) (*Output, error) {
	return o.processor.Convert(ctx, req, report)
}

// ConvertPath reads the input at path, a file or a region directory,
// then converts it.
func (o *Builder) ConvertPath(ctx context.Context, path string, req Request, report errs.Reporter) (*Output, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	req.Name = filepath.Base(path)
	if st.IsDir() {
		req.Dir = path
	} else if req.Data, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	return o.Convert(ctx, req, report)
}

// coordinates splits on commas and any whitespace.
func coordinates(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// ParseBox reads "x1 y1 z1 x2 y2 z2", commas allowed as separators.
func ParseBox(s string) (*[2]define.Pos, error) {
	fields := coordinates(s)
	if len(fields) != 6 {
		return nil, fmt.Errorf("box wants 6 coordinates, got %d", len(fields))
	}
	var box [2]define.Pos
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("box coordinate %q is not an integer", f)
		}
		box[i/3][i%3] = define.PE(v)
	}
	return &box, nil
}

// ParsePos reads "x y z" or "x,y,z".
func ParsePos(s string) (define.Pos, error) {
	var p define.Pos
	fields := coordinates(s)
	if len(fields) != 3 {
		return p, fmt.Errorf("position wants 3 coordinates, got %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return p, fmt.Errorf("coordinate %q is not an integer", f)
		}
		p[i] = define.PE(v)
	}
	return p, nil
}
