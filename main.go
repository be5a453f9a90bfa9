package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"omevox/builder"
	"omevox/config"
	errs "omevox/define"
	"omevox/transport/ws"
)

var (
	argConfigFile = flag.String("c", "", "config file path (default omevox.yaml)")
	argOutput     = flag.String("o", "", "output file, stdout for command text when empty")
	argFormat     = flag.String("f", builder.OutputCommands, "output: commands, structure, pack, script or bdx")
	argTranslate  = flag.String("translate", "", "translate java names to bedrock: yes, no or empty for the config default")
	argRotate     = flag.Int("rotate", 0, "rotate by 0, 90, 180 or 270 degrees")
	argMirror     = flag.String("mirror", "", "mirror along axes, e.g. x or xz")
	argHollow     = flag.Bool("hollow", false, "clear enclosed blocks")
	argGravity    = flag.Bool("gravity", false, "prop up falling blocks with barriers")
	argRelative   = flag.Bool("relative", false, "emit ~ coordinates")
	argOffset     = flag.String("offset", "", "shift output by x,y,z")
	argBox        = flag.String("box", "", "world box x1,y1,z1,x2,y2,z2 for region input")
	argName       = flag.String("name", "", "pack name")
	argNamespace  = flag.String("ns", "", "pack namespace")
	argAuthor     = flag.String("author", "omevox", "bdx author")
	argServe      = flag.Bool("serve", false, "run the websocket conversion service")
)

func fail(format string, args ...interface{}) {
	color.Red(format, args...)
	os.Exit(1)
}

func request() builder.Request {
	req := builder.Request{
		Output:    *argFormat,
		Rotate:    *argRotate,
		Mirror:    *argMirror,
		Hollow:    *argHollow,
		Gravity:   *argGravity,
		Relative:  *argRelative,
		PackName:  *argName,
		Namespace: *argNamespace,
		Author:    *argAuthor,
	}
	if *argOffset != "" {
		p, err := builder.ParsePos(*argOffset)
		if err != nil {
			fail("offset: %v", err)
		}
		req.Offset = p
	}
	if *argBox != "" {
		box, err := builder.ParseBox(*argBox)
		if err != nil {
			fail("box: %v", err)
		}
		req.Box = box
	}
	return req
}

func main() {
	flag.Parse()
	// stdout may carry command text, status goes to stderr
	color.Output = os.Stderr
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}

	cfg, created, err := config.Load(*argConfigFile)
	if err != nil {
		fail("config: %v", err)
	}
	if created {
		if err := cfg.WriteBack(); err != nil {
			fail("config: %v", err)
		}
		color.Blue("No config found, defaults written")
	}
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		fail("config: %v", err)
	}
	b, err := builder.New(cfg, log)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-c
		color.Yellow("Got signal: %v", s)
		cancel()
	}()

	if *argServe {
		srv := &http.Server{Addr: cfg.Server.Listen, Handler: ws.NewServer(b, cfg.Server, log).Mux()}
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
		color.Green("Serving conversions on ws://%s/convert", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("%v", err)
		}
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: omevox [flags] <schematic|bdx|region file|region dir>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	req := request()
	switch strings.ToLower(*argTranslate) {
	case "":
		req.Translate = cfg.Translate.Enabled
	case "yes", "true":
		req.Translate = true
	case "no", "false":
	default:
		fail("translate: want yes or no, got %q", *argTranslate)
	}

	stage := color.New(color.FgCyan)
	report := errs.ReportFn(func(s, msg string) {
		fmt.Fprintf(os.Stderr, "%s %s\n", stage.Sprintf("[%s]", s), msg)
	})
	input := flag.Arg(0)
	color.Blue("Converting %v...", filepath.Base(input))
	out, err := b.ConvertPath(ctx, input, req, report)
	if err != nil {
		fail("%s: %v", errs.Kind(err), err)
	}

	if *argOutput == "" && out.Format == builder.OutputCommands {
		_, _ = os.Stdout.Write(out.Data)
	} else {
		path := *argOutput
		if path == "" {
			path = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + extension(out.Format)
		}
		if err := os.WriteFile(path, out.Data, 0o644); err != nil {
			fail("%v", err)
		}
		color.Green("Wrote %v (%d bytes)", path, len(out.Data))
	}
	color.Green("Done: %d blocks in a %dx%dx%d volume", out.Blocks, out.Dims.Width, out.Dims.Height, out.Dims.Length)
}

func extension(format string) string {
	switch format {
	case builder.OutputStructure:
		return ".mcstructure"
	case builder.OutputPack:
		return ".mcpack"
	case builder.OutputBDX:
		return ".bdx"
	case builder.OutputScript:
		return ".mcfunction"
	}
	return ".txt"
}
