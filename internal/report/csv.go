package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// WriteCSV writes a Timestamp,Distance_m table.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Timestamp", "Distance_m"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Time.Format(time.RFC3339Nano),
			strconv.FormatFloat(e.Distance, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName returns a timestamped file name with the given extension.
func FileName(now time.Time, ext string) string {
	return "echotrace-" + now.Format("20060102-150405") + ext
}

// SaveCSV writes the history to a new timestamped file in dir and returns
// its path.
func SaveCSV(dir string, h *History, now time.Time) (string, error) {
	return save(dir, FileName(now, ".csv"), func(w io.Writer) error {
		return WriteCSV(w, h.Entries())
	})
}

func save(dir, name string, write func(io.Writer) error) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create %s: %w", dir, err)
	}
	path = filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("report: %w", cerr)
		}
	}()

	if err := write(f); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}
