// Package export reads and writes balance/usage series as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"prepaid-usage-lab/internal/domain"
)

// Column names, matching the JSON field names of domain.Sample.
const (
	ColumnTimestamp = "timestamp"
	ColumnLight     = "light_balance"
	ColumnAC        = "ac_balance"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required csv column")

// ReadSamplesCSV reads samples from a CSV stream with a header row.
// Column order is free and extra columns are ignored. Rows keep file order.
func ReadSamplesCSV(r io.Reader) ([]domain.Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []domain.Sample{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{ColumnTimestamp, ColumnLight, ColumnAC} {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	samples := make([]domain.Sample, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var s domain.Sample
		if s.Timestamp, err = field(record, columns, ColumnTimestamp); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Light, err = field(record, columns, ColumnLight); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.AC, err = field(record, columns, ColumnAC); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}

	return samples, nil
}

func field(record []string, columns map[string]int, name string) (float64, error) {
	idx := columns[name]
	if idx >= len(record) {
		return 0, fmt.Errorf("%s: missing value", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// WriteSamplesCSV writes samples with a header row.
func WriteSamplesCSV(w io.Writer, samples []domain.Sample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnTimestamp, ColumnLight, ColumnAC}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Timestamp, 'f', -1, 64),
			strconv.FormatFloat(s.Light, 'f', -1, 64),
			strconv.FormatFloat(s.AC, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
