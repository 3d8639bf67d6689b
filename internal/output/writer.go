// Package output writes energy traces: one signed integer per line, newline
// terminated, no header.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
)

// Sink receives the finished trace for one temperature.
type Sink interface {
	WriteTrace(temperature float64, trace []int64) error
}

// WriteTrace writes trace to w, one value per line.
func WriteTrace(w io.Writer, trace []int64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 24)
	for _, e := range trace {
		buf = strconv.AppendInt(buf[:0], e, 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	return nil
}

// ReadTrace parses a trace written by WriteTrace. Blank lines are skipped.
func ReadTrace(r io.Reader) ([]int64, error) {
	var trace []int64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trace = append(trace, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return trace, nil
}

// FileName returns the artifact name for temperature t: prefix, the
// temperature with six decimals, and ".csv" (e.g. "E_2.500000.csv").
func FileName(prefix string, t float64) string {
	return prefix + strconv.FormatFloat(t, 'f', 6, 64) + ".csv"
}

// CSVSink writes each trace to Dir/FileName(Prefix, T).
type CSVSink struct {
	Dir    string
	Prefix string
}

// NewCSVSink creates dir if needed
func NewCSVSink(dir, prefix string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &CSVSink{Dir: dir, Prefix: prefix}, nil
}

// Path returns the file a temperature's trace is written to
func (s *CSVSink) Path(t float64) string {
	return filepath.Join(s.Dir, FileName(s.Prefix, t))
}

// WriteTrace implements Sink
func (s *CSVSink) WriteTrace(t float64, trace []int64) (err error) {
	path := s.Path(t)
	f, err := os.Create(path)
	if err != nil {
		logger.Error("failed to open trace file", "path", path, "error", err)
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := WriteTrace(f, trace); err != nil {
		logger.Error("failed to write trace file", "path", path, "error", err)
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("trace written", "path", path, "samples", len(trace))
	return nil
}

// ConsoleSink prints each trace to W; the console variant of the driver.
type ConsoleSink struct {
	W io.Writer
}

// WriteTrace implements Sink
func (s ConsoleSink) WriteTrace(_ float64, trace []int64) error {
	return WriteTrace(s.W, trace)
}

// MultiSink fans a trace out to several sinks, stopping at the first error
type MultiSink []Sink

// WriteTrace implements Sink
func (m MultiSink) WriteTrace(t float64, trace []int64) error {
	for _, s := range m {
		if err := s.WriteTrace(t, trace); err != nil {
			return err
		}
	}
	return nil
}
