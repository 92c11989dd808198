// Package store persists simulation runs on disk. Each run lives in its
// own directory under the base path: metadata.json describes the run and
// series.csv holds the recorded snapshots, one row per sample.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/softmech/rodsim/internal/recorder"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Stepper   string             `json:"stepper"`
	Steps     int                `json:"steps"`
	Nodes     int                `json:"nodes"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one run directory and returns its generated id. The series
// columns are time, step, the center-of-mass velocity, then position and
// velocity triples per node.
func (s *Store) Save(scenario, stepper string, dt, duration float64, metrics map[string]float64, snaps []recorder.Snapshot) (string, error) {
	runID := uuid.New().String()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scenario:  scenario,
		Timestamp: time.Now(),
		Dt:        dt,
		Duration:  duration,
		Stepper:   stepper,
		Metrics:   metrics,
	}
	if len(snaps) > 0 {
		meta.Steps = snaps[len(snaps)-1].Step
		meta.Nodes = len(snaps[0].Positions)
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "series.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(snaps) == 0 {
		return runID, nil
	}

	header := []string{"time", "step", "com_vx", "com_vy", "com_vz"}
	for i := range snaps[0].Positions {
		header = append(header,
			fmt.Sprintf("px%d", i), fmt.Sprintf("py%d", i), fmt.Sprintf("pz%d", i))
	}
	for i := range snaps[0].Velocities {
		header = append(header,
			fmt.Sprintf("vx%d", i), fmt.Sprintf("vy%d", i), fmt.Sprintf("vz%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, snap := range snaps {
		row := []string{
			strconv.FormatFloat(snap.Time, 'g', -1, 64),
			strconv.Itoa(snap.Step),
			strconv.FormatFloat(snap.CenterOfMassVelocity.X, 'g', -1, 64),
			strconv.FormatFloat(snap.CenterOfMassVelocity.Y, 'g', -1, 64),
			strconv.FormatFloat(snap.CenterOfMassVelocity.Z, 'g', -1, 64),
		}
		for _, p := range snap.Positions {
			row = append(row,
				strconv.FormatFloat(p.X, 'g', -1, 64),
				strconv.FormatFloat(p.Y, 'g', -1, 64),
				strconv.FormatFloat(p.Z, 'g', -1, 64))
		}
		for _, v := range snap.Velocities {
			row = append(row,
				strconv.FormatFloat(v.X, 'g', -1, 64),
				strconv.FormatFloat(v.Y, 'g', -1, 64),
				strconv.FormatFloat(v.Z, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	// Directory names are random uuids, so restore chronological order.
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSeries reads the recorded samples of one run. Each returned row
// holds every column after time, in the order Save wrote them.
func (s *Store) LoadSeries(runID string) ([][]float64, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, val)
		}
		rows = append(rows, row)
	}

	return rows, times, nil
}
