package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sghctoma/sst/telemetry/internal/db"
	"github.com/sghctoma/sst/telemetry/internal/logging"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

const calibrations = `{
	"front": {"name": "fork", "inputs": {},
		"method": {"name": "percentage", "intermediates": {"factor": "MAX_STROKE / 100.0"}, "expression": "sample * factor"}},
	"rear": {"name": "shock", "inputs": {},
		"method": {"name": "percentage", "intermediates": {"factor": "MAX_STROKE / 100.0"}, "expression": "sample * factor"}}
}`

func testImporter(t *testing.T) *Importer {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "%d,2.5\n", i)
	}
	setup, err := psst.NewSetup(psst.Linkage{
		Name:           "constant",
		HeadAngle:      64,
		MaxFrontStroke: 160,
		MaxRearStroke:  55,
		RawData:        sb.String(),
	}, []byte(calibrations))
	if err != nil {
		t.Fatalf("NewSetup failed: %v", err)
	}

	store, err := db.Open(filepath.Join(t.TempDir(), "gosst.db"))
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &Importer{Store: store, Setup: setup, Log: logging.Nop()}
}

func sstFile(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("SST")
	h := struct {
		Version    uint8
		SampleRate uint16
		Padding    uint16
		Timestamp  int64
	}{3, 1000, 0, 1680000000}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		p := uint16(40 + 35*math.Sin(2*math.Pi*float64(i)/500))
		if err := binary.Write(&buf, binary.LittleEndian, [2]uint16{p, p}); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func uploadHeader(t *testing.T, name string, size int) []byte {
	t.Helper()
	h := header{BoardId: [8]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 1}, Size: uint64(size)}
	copy(h.Name[:], name)
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// upload plays the DAQ side of the protocol and returns the status bytes it
// received.
func upload(t *testing.T, imp *Importer, hdr, data []byte) []byte {
	t.Helper()
	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		imp.handleRequest(server)
		close(done)
	}()

	var status []byte
	b := make([]byte, 1)
	client.Write(hdr)
	if _, err := io.ReadFull(client, b); err != nil {
		t.Fatalf("no response to header: %v", err)
	}
	status = append(status, b[0])
	if b[0] == STATUS_HEADER_OK {
		client.Write(data)
		if _, err := io.ReadFull(client, b); err != nil {
			t.Fatalf("no response to data: %v", err)
		}
		status = append(status, b[0])
	}
	client.Close()
	<-done
	return status
}

func TestImport(t *testing.T) {
	imp := testImporter(t)
	data := sstFile(t, 3000)

	status := upload(t, imp, uploadHeader(t, "00042.SST", len(data)), data)
	if !bytes.Equal(status, []byte{STATUS_HEADER_OK, STATUS_SUCCESS}) {
		t.Fatalf("status = %v", status)
	}

	sessions, err := imp.Store.Sessions(context.Background())
	if err != nil || len(sessions) != 1 {
		t.Fatalf("Sessions = %v, %v", sessions, err)
	}
	if sessions[0].Name != "00042.SST" || sessions[0].Timestamp != 1680000000 {
		t.Errorf("session = %+v", sessions[0])
	}
	if !strings.Contains(sessions[0].Description, "deadbeef00000001") {
		t.Errorf("description = %q, expected the board id", sessions[0].Description)
	}

	_, b, err := imp.Store.SessionData(context.Background(), int64(sessions[0].Id))
	if err != nil {
		t.Fatal(err)
	}
	pd, err := psst.Decode(b)
	if err != nil {
		t.Fatalf("stored record does not decode: %v", err)
	}
	if len(pd.Front.Travel) != 3000 || !pd.Rear.Present {
		t.Errorf("unexpected record: %d front samples, rear present: %v", len(pd.Front.Travel), pd.Rear.Present)
	}
}

func TestImportRejects(t *testing.T) {
	data := sstFile(t, 3000)
	tests := []struct {
		name     string
		hdr      []byte
		data     []byte
		expected []byte
	}{
		{"wrong name", uploadHeader(t, "RIDE1.SST", len(data)), data, []byte{ERR_VAL}},
		{"too large", uploadHeader(t, "00001.SST", MAX_DATA_SIZE+1), data, []byte{ERR_VAL}},
		{"not SST", uploadHeader(t, "00001.SST", 64), make([]byte, 64), []byte{STATUS_HEADER_OK, ERR_VAL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := testImporter(t)
			if status := upload(t, imp, tt.hdr, tt.data); !bytes.Equal(status, tt.expected) {
				t.Errorf("status = %v, expected %v", status, tt.expected)
			}
			if sessions, _ := imp.Store.Sessions(context.Background()); len(sessions) != 0 {
				t.Errorf("%d sessions stored", len(sessions))
			}
		})
	}
}
