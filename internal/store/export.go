package store

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	ID       string             `json:"id"`
	Scenario string             `json:"scenario"`
	Stepper  string             `json:"stepper"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	Series   [][]float64        `json:"series"`
	Metrics  map[string]float64 `json:"metrics"`
}

func buildExport(meta *RunMetadata, times []float64, series [][]float64) ExportData {
	return ExportData{
		ID:       meta.ID,
		Scenario: meta.Scenario,
		Stepper:  meta.Stepper,
		Dt:       meta.Dt,
		Duration: meta.Duration,
		Steps:    meta.Steps,
		Times:    times,
		Series:   series,
		Metrics:  meta.Metrics,
	}
}

func encodeExport(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSON writes one run as a single JSON document.
func ExportJSON(path string, meta *RunMetadata, times []float64, series [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return encodeExport(file, buildExport(meta, times, series))
}

// ExportJSONStdout writes the same document to standard output.
func ExportJSONStdout(meta *RunMetadata, times []float64, series [][]float64) error {
	return encodeExport(os.Stdout, buildExport(meta, times, series))
}
