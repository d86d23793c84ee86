package waveform

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// traceFile is the on-disk JSON shape of a single trace.
type traceFile struct {
	Network      string    `json:"network,omitempty"`
	Station      string    `json:"station,omitempty"`
	Location     string    `json:"location,omitempty"`
	Channel      string    `json:"channel"`
	Start        time.Time `json:"start"`
	SamplingRate float64   `json:"sampling_rate"`
	Samples      []float64 `json:"samples"`
}

type streamFile struct {
	Traces []traceFile `json:"traces"`
}

// ReadJSON decodes either a single trace object or {"traces": [...]}.
func ReadJSON(r io.Reader) (Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read waveform: %w", err)
	}

	var sf streamFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("%w: parse waveform JSON: %v", ErrBadInput, err)
	}
	if len(sf.Traces) == 0 {
		var tf traceFile
		if err := json.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("%w: parse waveform JSON: %v", ErrBadInput, err)
		}
		sf.Traces = []traceFile{tf}
	}

	out := make(Stream, 0, len(sf.Traces))
	for i, tf := range sf.Traces {
		tr := &Trace{
			Network:      tf.Network,
			Station:      tf.Station,
			Location:     tf.Location,
			Channel:      tf.Channel,
			Start:        tf.Start.UTC(),
			SamplingRate: tf.SamplingRate,
			Samples:      tf.Samples,
		}
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
		out = append(out, tr)
	}
	return out, nil
}

// LoadJSON reads a waveform file written in the ReadJSON format.
func LoadJSON(path string) (Stream, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open waveform file: %w", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes s as {"traces": [...]}.
func WriteJSON(w io.Writer, s Stream) error {
	sf := streamFile{Traces: make([]traceFile, 0, len(s))}
	for _, tr := range s {
		sf.Traces = append(sf.Traces, traceFile{
			Network:      tr.Network,
			Station:      tr.Station,
			Location:     tr.Location,
			Channel:      tr.Channel,
			Start:        tr.Start,
			SamplingRate: tr.SamplingRate,
			Samples:      tr.Samples,
		})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(sf)
}
