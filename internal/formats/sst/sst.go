package sst

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

const (
	HEADER_SIZE    = 16
	RECORD_SIZE    = 4
	MISSING_SENSOR = 0xffff // value of the first record of an absent sensor
	BASELINE_JUMP  = 0x0050 // smallest jump treated as a baseline error
)

type header struct {
	Magic      [3]byte
	Version    uint8
	SampleRate uint16
	Padding    uint16
	Timestamp  int64
}

type record struct {
	ForkAngle  uint16
	ShockAngle uint16
}

type NotSSTError struct{}

func (e *NotSSTError) Error() string {
	return "Data is not SST format"
}

type TruncatedError struct {
	Size int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("SST data is truncated (%d bytes)", e.Size)
}

// baselineError finds sensors that jump to an unreasonably large value
// shortly after start, but measure correctly from that new baseline. The
// returned value should be subtracted from every sample.
func baselineError(samples []uint16) uint16 {
	baseline := samples[0]
	for _, s := range samples[1:] {
		if s > baseline {
			if s > BASELINE_JUMP {
				return s
			}
			break
		}
	}
	return 0
}

// ProcessRaw reads an SST file. A sensor whose first record is
// MISSING_SENSOR was not connected, and its slice is nil.
func ProcessRaw(sst_data []byte) (front, rear []uint16, meta psst.Meta, err error) {
	if len(sst_data) < HEADER_SIZE {
		err = &NotSSTError{}
		return
	}
	f := bytes.NewReader(sst_data)
	var h header
	if err = binary.Read(f, binary.LittleEndian, &h); err != nil {
		return
	}
	if string(h.Magic[:]) != "SST" {
		err = &NotSSTError{}
		return
	}
	meta.Version = h.Version
	meta.SampleRate = h.SampleRate
	meta.Timestamp = h.Timestamp

	record_count := (len(sst_data) - HEADER_SIZE) / RECORD_SIZE
	if record_count == 0 {
		err = &TruncatedError{Size: len(sst_data)}
		return
	}
	records := make([]record, record_count)
	if err = binary.Read(f, binary.LittleEndian, &records); err != nil {
		return
	}

	fork := make([]uint16, record_count)
	shock := make([]uint16, record_count)
	for idx, r := range records {
		fork[idx] = r.ForkAngle
		shock[idx] = r.ShockAngle
	}

	if fork[0] != MISSING_SENSOR {
		front = correct(fork)
	}
	if shock[0] != MISSING_SENSOR {
		rear = correct(shock)
	}
	return
}

func correct(samples []uint16) []uint16 {
	e := baselineError(samples)
	if e == 0 {
		return samples
	}
	for idx := range samples {
		samples[idx] -= e
	}
	return samples
}
