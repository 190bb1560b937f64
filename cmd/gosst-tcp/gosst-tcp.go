package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"os"
	"path"
	"regexp"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/sghctoma/sst/telemetry/internal/db"
	"github.com/sghctoma/sst/telemetry/internal/formats/sst"
	"github.com/sghctoma/sst/telemetry/internal/logging"
	"github.com/sghctoma/sst/telemetry/internal/metrics"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

// Status bytes understood by the DAQ firmware.
const (
	STATUS_HEADER_OK = 4
	STATUS_SUCCESS   = 6
	ERR_CLSD         = 0xf1 // ERR_CLSD from LwIP
	ERR_VAL          = 0xfa // ERR_VAL from LwIP
)

const (
	HEADER_SIZE   = 25
	MAX_DATA_SIZE = 32 * 1024 * 1024
	IO_TIMEOUT    = 30 * time.Second
)

var sstName = regexp.MustCompile(`^[0-9]{5}\.SST$`)

type header struct {
	BoardId [8]byte
	Size    uint64
	Name    [9]byte
}

type Importer struct {
	Store *db.Store
	Setup *psst.SetupData
	Log   *zap.SugaredLogger
}

func (this *Importer) putSession(ctx context.Context, board, name string, sst_data []byte) (int, error) {
	front, rear, meta, err := sst.ProcessRaw(sst_data)
	if err != nil {
		metrics.DecodeErrors.WithLabelValues("sst").Inc()
		return 0, err
	}
	meta.Name = name

	pd, err := psst.ProcessRecording(front, rear, meta, this.Setup)
	if err != nil {
		return 0, err
	}
	psst_data, err := psst.Encode(pd)
	if err != nil {
		return 0, err
	}

	session := db.Session{
		Name:        name,
		Description: "Imported from board " + board,
		Timestamp:   pd.Timestamp,
		Data:        psst_data,
	}
	return this.Store.InsertSession(ctx, &session)
}

func (this *Importer) handleRequest(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(IO_TIMEOUT))

	bufHeader := make([]byte, HEADER_SIZE)
	if _, err := io.ReadFull(conn, bufHeader); err != nil {
		this.Log.Warnw("could not fetch header", "remote", conn.RemoteAddr(), "error", err)
		conn.Write([]byte{ERR_CLSD})
		return
	}

	var h header
	if err := binary.Read(bytes.NewReader(bufHeader), binary.LittleEndian, &h); err != nil {
		this.Log.Warnw("invalid header", "error", err)
		conn.Write([]byte{ERR_VAL})
		return
	}
	if h.Size > MAX_DATA_SIZE {
		this.Log.Warnw("size exceeds maximum", "size", h.Size)
		conn.Write([]byte{ERR_VAL})
		return
	}
	name := string(h.Name[:])
	if !sstName.MatchString(name) {
		this.Log.Warnw("wrong name format", "name", name)
		conn.Write([]byte{ERR_VAL})
		return
	}
	conn.Write([]byte{STATUS_HEADER_OK})

	data := make([]byte, h.Size)
	if _, err := io.ReadFull(conn, data); err != nil {
		this.Log.Warnw("could not fetch data", "name", name, "error", err)
		conn.Write([]byte{ERR_CLSD})
		return
	}

	board := hex.EncodeToString(h.BoardId[:])
	id, err := this.putSession(context.Background(), board, name, data)
	if err != nil {
		this.Log.Errorw("session could not be imported", "board", board, "name", name, "error", err)
		conn.Write([]byte{ERR_VAL})
		return
	}
	conn.Write([]byte{STATUS_SUCCESS})
	this.Log.Infow("session imported", "board", board, "name", name, "id", id)
}

func (this *Importer) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			this.Log.Warnw("accept failed", "error", err)
			continue
		}
		go this.handleRequest(conn)
	}
}

func main() {
	var opts struct {
		DatabaseFile      string  `short:"d" long:"database" description:"SQLite3 database file path" required:"true"`
		Host              string  `short:"h" long:"host" description:"Host to bind on" default:"0.0.0.0"`
		Port              string  `short:"p" long:"port" description:"Port to bind on" default:"557"`
		LeverageRatioFile string  `short:"l" long:"leverageratio" description:"Leverage ratio file" required:"true"`
		HeadAngle         float64 `short:"a" long:"headangle" description:"Head angle" required:"true"`
		MaxFrontStroke    float64 `short:"f" long:"frontmax" description:"Maximum stroke (front)" required:"true"`
		MaxRearStroke     float64 `short:"r" long:"rearmax" description:"Maximum stroke (rear)" required:"true"`
		Calibration       string  `short:"c" long:"calibration" description:"Calibration data file (JSON)" required:"true"`
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

	lb, err := os.ReadFile(opts.LeverageRatioFile)
	if err != nil {
		log.Fatalw("could not read leverage ratio file", "error", err)
	}
	cb, err := os.ReadFile(opts.Calibration)
	if err != nil {
		log.Fatalw("could not read calibration file", "error", err)
	}
	setup, err := psst.NewSetup(psst.Linkage{
		Name:           path.Base(opts.LeverageRatioFile),
		HeadAngle:      opts.HeadAngle,
		MaxFrontStroke: opts.MaxFrontStroke,
		MaxRearStroke:  opts.MaxRearStroke,
		RawData:        string(lb),
	}, cb)
	if err != nil {
		log.Fatalw("could not load setup", "error", err)
	}

	store, err := db.Open(opts.DatabaseFile)
	if err != nil {
		log.Fatalw("could not open database", "path", opts.DatabaseFile, "error", err)
	}
	defer store.Close()

	l, err := net.Listen("tcp", net.JoinHostPort(opts.Host, opts.Port))
	if err != nil {
		log.Fatalw("could not listen", "error", err)
	}
	defer l.Close()

	importer := &Importer{Store: store, Setup: setup, Log: log}
	log.Infow("listening", "address", l.Addr().String())
	if err := importer.Serve(l); err != nil {
		log.Errorw("server stopped", "error", err)
	}
}
