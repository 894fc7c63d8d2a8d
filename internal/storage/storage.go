package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/personalweb03/services/internal/model"
)

// hoursHeader is the header row of the hours CSV.
var hoursHeader = []string{"project_name", "hours_worked", "datetime_collected"}

// WriteFile atomically writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	_, err := WriteStream(path, bytes.NewReader(data))
	return err
}

// WriteStream atomically copies r into path, creating parent directories.
// It returns the number of bytes written.
func WriteStream(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("storage error creating directories: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("storage error creating temp file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return n, nil
}

// SaveSummary writes the summary as indented JSON.
func SaveSummary(path string, s model.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return WriteFile(path, append(data, '\n'))
}

// LoadSummary reads a summary written by SaveSummary. A corrupt file is
// backed up next to the original and reported as an error.
func LoadSummary(path string) (model.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}

	var s model.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return s, nil
}

// SaveHoursCSV writes one row per project; every row repeats the collection
// timestamp.
func SaveHoursCSV(path string, report model.HoursReport) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(hoursHeader); err != nil {
		return fmt.Errorf("storage error writing CSV: %w", err)
	}
	for _, p := range report.Projects {
		row := []string{
			p.ProjectName,
			strconv.FormatFloat(p.HoursWorked, 'f', 2, 64),
			report.CollectedAt,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("storage error writing CSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("storage error writing CSV: %w", err)
	}
	return WriteFile(path, buf.Bytes())
}

// LoadHoursCSV reads a file written by SaveHoursCSV.
func LoadHoursCSV(path string) (model.HoursReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.HoursReport{}, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(hoursHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return model.HoursReport{}, fmt.Errorf("storage error parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return model.HoursReport{}, fmt.Errorf("storage error parsing %s: %w", path, errors.New("missing header"))
	}

	report := model.HoursReport{Projects: []model.ProjectHours{}}
	for i, row := range rows[1:] {
		hours, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return model.HoursReport{}, fmt.Errorf("storage error parsing %s line %d: %w", path, i+2, err)
		}
		report.Projects = append(report.Projects, model.ProjectHours{ProjectName: row[0], HoursWorked: hours})
		report.CollectedAt = row[2]
	}
	return report, nil
}
