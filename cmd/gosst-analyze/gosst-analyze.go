package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sghctoma/sst/telemetry/internal/analysis"
	"github.com/sghctoma/sst/telemetry/internal/logging"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

func main() {
	var opts struct {
		Input              string   `short:"i" long:"input" description:"Processed telemetry file (.PSST)" required:"true"`
		Output             string   `short:"o" long:"output" description:"Output file (default: stdout)"`
		Start              *float64 `short:"s" long:"start" description:"Start of the analyzed range (s)"`
		End                *float64 `short:"e" long:"end" description:"End of the analyzed range (s)"`
		HighSpeedThreshold float64  `short:"H" long:"hst" description:"High speed threshold (mm/s)" default:"350"`
		Debug              bool     `long:"debug" description:"Verbose logging"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	log, err := logging.New(opts.Debug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	b, err := os.ReadFile(opts.Input)
	if err != nil {
		log.Fatalw("could not read input", "error", err)
	}
	t, err := psst.Decode(b)
	if err != nil {
		var de *psst.DecodeError
		if errors.As(err, &de) {
			log.Fatalw("invalid PSST file", "path", de.Path, "reason", de.Reason)
		}
		log.Fatalw("could not decode input", "error", err)
	}

	start, end, err := analysis.ResolveRange(opts.Start, opts.End, t.SampleRate, analysis.SampleCount(t))
	if err != nil {
		log.Warnw("ignoring range", "error", err)
	}
	bundle := analysis.Analyze(t, start, end, opts.HighSpeedThreshold)

	out := os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			log.Fatalw("could not create output", "error", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		log.Fatalw("could not write analysis", "error", err)
	}
}
