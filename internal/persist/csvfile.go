// Package persist saves and loads the store contents. CSVFile writes one
// line per item after a header row; any Backend can be attached to a store
// so that every mutation is written through.
package persist

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nick-dorsch/tracker/pkg/models"
)

// ErrUnknownKind is returned when a saved row carries a kind tag that is not
// task, epic or subtask. Callers treat it as fatal.
var ErrUnknownKind = errors.New("unknown item kind")

// Header is the first row of a CSV file.
var Header = []string{"id", "type", "name", "description", "status", "duration", "start_time", "epic"}

// CSVFile stores items as comma separated rows in a single file.
type CSVFile struct {
	Path string
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path}
}

// Save writes items to the file atomically using a temporary file.
func (f *CSVFile) Save(ctx context.Context, items []*models.Task) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "tasks-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := csv.NewWriter(tempFile)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, it := range items {
		if err := w.Write(FormatRow(it)); err != nil {
			return fmt.Errorf("failed to write item %d: %w", it.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil

	if err := os.Rename(filename, f.Path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads every row after the header. A missing file yields no items.
func (f *CSVFile) Load(ctx context.Context) ([]*models.Task, error) {
	file, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var items []*models.Task
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		t, err := ParseRow(rec)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, t)
	}
	return items, nil
}

// FormatRow renders t in Header column order.
func FormatRow(t *models.Task) []string {
	start, epic := "", ""
	if t.Scheduled() {
		start = t.StartTime.Format(time.RFC3339)
	}
	if t.Kind == models.KindSubTask {
		epic = strconv.Itoa(t.EpicID)
	}
	return []string{
		strconv.Itoa(t.ID),
		string(t.Kind),
		t.Name,
		t.Description,
		string(t.Status),
		t.Duration.String(),
		start,
		epic,
	}
}

// ParseRow is the inverse of FormatRow.
func ParseRow(rec []string) (*models.Task, error) {
	if len(rec) < 7 {
		return nil, fmt.Errorf("expected at least 7 columns, got %d", len(rec))
	}

	kind, ok := models.ParseKind(rec[1])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, rec[1])
	}

	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", rec[0], err)
	}

	status, ok := models.ParseStatus(rec[4])
	if !ok {
		return nil, fmt.Errorf("invalid status %q", rec[4])
	}

	t := &models.Task{
		ID:          id,
		Kind:        kind,
		Name:        rec[2],
		Description: rec[3],
		Status:      status,
	}

	if rec[5] != "" {
		if t.Duration, err = time.ParseDuration(rec[5]); err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", rec[5], err)
		}
	}
	if rec[6] != "" {
		start, err := time.Parse(time.RFC3339, rec[6])
		if err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", rec[6], err)
		}
		t.StartTime = &start
	}
	if kind == models.KindSubTask {
		if len(rec) < 8 || rec[7] == "" {
			return nil, fmt.Errorf("subtask %d has no epic", id)
		}
		if t.EpicID, err = strconv.Atoi(rec[7]); err != nil {
			return nil, fmt.Errorf("invalid epic id %q: %w", rec[7], err)
		}
	}
	return t, nil
}
