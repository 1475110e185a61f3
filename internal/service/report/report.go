// Package report writes the per-run CSV report: one row per segment, a blank
// separator, the statistics block and the word frequency ranking.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"speech-analytics-service/internal/service/lexical"
	"speech-analytics-service/internal/transcript"
)

// Header is the first row of every report.
var Header = []string{"timestamp", "transcription"}

// Row labels of the statistics block.
const (
	LabelSection        = "Estatísticas"
	LabelTotalWords     = "Total de palavras"
	LabelWordsPerMinute = "Palavras por minuto"
	LabelMagicWords     = "Percentual de palavras mágicas"
)

// Rows lays out the report in its fixed order.
func Rows(segments []transcript.Segment, stats lexical.Statistics) ([][]string, error) {
	lines, err := transcript.Lines(segments)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(lines)+len(stats.WordFrequency)+6)
	rows = append(rows, Header)
	for _, l := range lines {
		rows = append(rows, []string{l.Timestamp, l.Text})
	}
	rows = append(rows,
		[]string{"", ""},
		[]string{LabelSection, ""},
		[]string{LabelTotalWords, strconv.Itoa(stats.TotalWords)},
		[]string{LabelWordsPerMinute, formatFloat(stats.WordsPerMinute)},
		[]string{LabelMagicWords, formatFloat(stats.MagicWordPercentage)},
	)
	for _, wc := range stats.WordFrequency {
		rows = append(rows, []string{wc.Word, strconv.Itoa(wc.Count)})
	}
	return rows, nil
}

// Encode writes the report rows as CSV to w.
func Encode(w io.Writer, segments []transcript.Segment, stats lexical.Statistics) error {
	rows, err := Rows(segments, stats)
	if err != nil {
		return err
	}
	return encodeRows(w, rows)
}

func encodeRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Write creates or replaces the report at path. The rows go to a temporary
// file in the same directory that is renamed over path once complete, so a
// failed write never leaves a truncated report behind.
func Write(path string, segments []transcript.Segment, stats lexical.Statistics) (err error) {
	// Lay out rows before touching the filesystem so bad input creates nothing.
	rows, err := Rows(segments, stats)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = encodeRows(tmp, rows); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize report: %w", err)
	}
	return nil
}

// ErrNoFreeName is returned when every candidate report name is taken.
var ErrNoFreeName = errors.New("no free report name")

// maxReserveAttempts bounds the numeric suffixes tried by Reserve.
const maxReserveAttempts = 1000

// Reserve claims a new, empty report file in dir named <stem>.csv, or
// <stem>_2.csv, <stem>_3.csv and so on when that name already exists. It
// returns the claimed path; a later Write to it replaces the placeholder.
// Names are claimed with O_EXCL, so concurrent callers never share a path.
func Reserve(dir, stem string) (string, error) {
	for i := 1; i <= maxReserveAttempts; i++ {
		name := stem + ".csv"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.csv", stem, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve report: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("reserve report: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoFreeName, stem)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
