package sst

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func sstData(t *testing.T, magic string, records []record) []byte {
	t.Helper()
	var buf bytes.Buffer
	h := header{Version: 3, SampleRate: 1000, Timestamp: 1680000000}
	copy(h.Magic[:], magic)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, records); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestProcessRaw(t *testing.T) {
	tests := []struct {
		name        string
		records     []record
		front, rear []uint16
	}{
		{
			name:    "both sensors",
			records: []record{{10, 20}, {11, 19}, {12, 25}},
			front:   []uint16{10, 11, 12},
			rear:    []uint16{20, 19, 25},
		},
		{
			name:    "missing rear",
			records: []record{{10, MISSING_SENSOR}, {11, MISSING_SENSOR}},
			front:   []uint16{10, 11},
		},
		{
			name:    "missing front",
			records: []record{{MISSING_SENSOR, 5}, {MISSING_SENSOR, 6}},
			rear:    []uint16{5, 6},
		},
		{
			name:    "baseline jump is removed",
			records: []record{{2, 2}, {2, 2}, {0x0100, 3}, {0x0105, 4}},
			front:   []uint16{0xff02, 0xff02, 0, 5},
			rear:    []uint16{2, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, rear, meta, err := ProcessRaw(sstData(t, "SST", tt.records))
			if err != nil {
				t.Fatalf("ProcessRaw failed: %v", err)
			}
			if meta.SampleRate != 1000 || meta.Version != 3 || meta.Timestamp != 1680000000 {
				t.Errorf("meta = %+v", meta)
			}
			if !reflect.DeepEqual(front, tt.front) || !reflect.DeepEqual(rear, tt.rear) {
				t.Errorf("front = %v, rear = %v, expected %v and %v", front, rear, tt.front, tt.rear)
			}
		})
	}
}

func TestProcessRawErrors(t *testing.T) {
	var nse *NotSSTError
	if _, _, _, err := ProcessRaw(sstData(t, "PNG", []record{{1, 1}})); !errors.As(err, &nse) {
		t.Errorf("error = %v, expected *NotSSTError", err)
	}
	if _, _, _, err := ProcessRaw([]byte("SST")); !errors.As(err, &nse) {
		t.Errorf("error = %v, expected *NotSSTError", err)
	}
	var te *TruncatedError
	if _, _, _, err := ProcessRaw(sstData(t, "SST", nil)); !errors.As(err, &te) {
		t.Errorf("error = %v, expected *TruncatedError", err)
	}
}
