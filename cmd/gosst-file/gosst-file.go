package main

import (
	"os"
	"path"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/sghctoma/sst/telemetry/internal/formats/sst"
	"github.com/sghctoma/sst/telemetry/internal/logging"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

func outputName(input string) string {
	ext := path.Ext(input)
	if ext == "" {
		return input + ".PSST"
	}
	n := strings.LastIndex(input, ext)
	return input[:n] + ".PSST"
}

func main() {
	var opts struct {
		TelemetryFile     string  `short:"t" long:"telemetry" description:"Telemetry data file (.SST)" required:"true"`
		LeverageRatioFile string  `short:"l" long:"leverageratio" description:"Leverage ratio file" required:"true"`
		HeadAngle         float64 `short:"a" long:"headangle" description:"Head angle" required:"true"`
		MaxFrontStroke    float64 `short:"f" long:"frontmax" description:"Maximum stroke (front)" required:"true"`
		MaxRearStroke     float64 `short:"r" long:"rearmax" description:"Maximum stroke (rear)" required:"true"`
		Calibration       string  `short:"c" long:"calibration" description:"Calibration data file (JSON)" required:"true"`
		OutputFile        string  `short:"o" long:"output" description:"Output file"`
		Debug             bool    `long:"debug" description:"Verbose logging"`
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

	linkage := psst.Linkage{
		Name:           path.Base(opts.LeverageRatioFile),
		HeadAngle:      opts.HeadAngle,
		MaxFrontStroke: opts.MaxFrontStroke,
		MaxRearStroke:  opts.MaxRearStroke,
	}
	lb, err := os.ReadFile(opts.LeverageRatioFile)
	if err != nil {
		log.Fatalw("could not read leverage ratio file", "error", err)
	}
	linkage.RawData = string(lb)

	cb, err := os.ReadFile(opts.Calibration)
	if err != nil {
		log.Fatalw("could not read calibration file", "error", err)
	}
	setup, err := psst.NewSetup(linkage, cb)
	if err != nil {
		log.Fatalw("could not load setup", "error", err)
	}

	tb, err := os.ReadFile(opts.TelemetryFile)
	if err != nil {
		log.Fatalw("could not read telemetry file", "error", err)
	}
	front, rear, meta, err := sst.ProcessRaw(tb)
	if err != nil {
		log.Fatalw("could not parse telemetry file", "file", opts.TelemetryFile, "error", err)
	}
	meta.Name = path.Base(opts.TelemetryFile)

	pd, err := psst.ProcessRecording(front, rear, meta, setup)
	if err != nil {
		log.Fatalw("could not process recording", "error", err)
	}
	log.Debugw("processed recording",
		"samples", len(front)+len(rear),
		"airtimes", len(pd.Airtimes),
		"front_strokes", len(pd.Front.Strokes.Compressions)+len(pd.Front.Strokes.Rebounds),
		"rear_strokes", len(pd.Rear.Strokes.Compressions)+len(pd.Rear.Strokes.Rebounds))

	data, err := psst.Encode(pd)
	if err != nil {
		log.Fatalw("could not encode PSST", "error", err)
	}

	output := opts.OutputFile
	if output == "" {
		output = outputName(opts.TelemetryFile)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		log.Fatalw("could not write output", "file", output, "error", err)
	}
	log.Infow("wrote PSST file", "file", output, "duration", pd.Duration())
}
