// Command dryrun walks a BDX file or schematic the way a builder bot
// would and prints the counters, without placing anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"omevox/builder/define"
	"omevox/builder/ir"
	"omevox/builder/loader/bdump"
	"omevox/builder/loader/schematic"
	"omevox/builder/worker"
	errs "omevox/define"
)

var verbose = flag.Bool("v", false, "log every move")

func load(ctx context.Context, path string, log logrus.FieldLogger) (*ir.IR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	report := errs.ReportFn(func(stage, msg string) {
		log.WithField("stage", stage).Info(msg)
	})
	if bdump.IsBDX(data) {
		structure := ir.NewIR(nil)
		_, err := bdump.Load(ctx, data, structure, bdump.Options{Log: log, Reporter: report})
		return structure, err
	}
	res, err := schematic.Ingest(ctx, data, schematic.Options{Log: log})
	if err != nil {
		return nil, err
	}
	return ir.FromVolume(res.Volume, define.Pos{}), nil
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dryrun [-v] <file>")
		os.Exit(2)
	}
	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	ctx := context.Background()
	structure, err := load(ctx, flag.Arg(0), log)
	if err != nil {
		log.WithError(err).Fatal("load failed")
	}
	w := &worker.DebugWorker{Log: log}
	if err := worker.Run(ctx, structure, w, nil); err != nil {
		log.WithError(err).Fatal("walk failed")
	}
	fmt.Println(w.BlockCounter)
	fmt.Println(w.OpCounter)
}
