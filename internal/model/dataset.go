package model

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"fightcancer/internal/encoding"
)

// Dataset is a labeled table of raw feature rows in encoding.RawFeatures order.
type Dataset struct {
	Columns []string
	Rows    [][]encoding.Value
	Labels  []int
}

// Len is the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Row returns row i as an encoding.Row.
func (d *Dataset) Row(i int) encoding.Row {
	return encoding.Row{Columns: d.Columns, Values: d.Rows[i]}
}

// Subset returns the rows at idx, in that order.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Columns: d.Columns,
		Rows:    make([][]encoding.Value, len(idx)),
		Labels:  make([]int, len(idx)),
	}
	for i, j := range idx {
		out.Rows[i] = d.Rows[j]
		out.Labels[i] = d.Labels[j]
	}
	return out
}

// ClassCounts returns the number of rows per label (0 and 1).
func (d *Dataset) ClassCounts() [2]int {
	var c [2]int
	for _, y := range d.Labels {
		c[y]++
	}
	return c
}

// LoadDatasetFile opens path and calls LoadDataset.
func LoadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return LoadDataset(f)
}

// LoadDataset reads a CSV with a header row holding every raw feature column
// and the target column; other columns are ignored. Rows with any missing
// feature or target are dropped.
func LoadDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	cols := encoding.RawFeatures()
	colIdx := make([]int, len(cols))
	for i, c := range cols {
		j, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("dataset is missing column %q", c)
		}
		colIdx[i] = j
	}
	targetIdx, ok := pos[encoding.Target]
	if !ok {
		return nil, fmt.Errorf("dataset is missing target column %q", encoding.Target)
	}

	d := &Dataset{Columns: cols}
	dropped := 0
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		label, ok := parseLabel(cell(rec, targetIdx))
		if !ok {
			dropped++
			continue
		}
		row := make([]encoding.Value, len(cols))
		complete := true
		for i, f := range encoding.Features {
			v, err := encoding.ParseCell(f, cell(rec, colIdx[i]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if !v.Valid {
				complete = false
				break
			}
			row[i] = v
		}
		if !complete {
			dropped++
			continue
		}
		d.Rows = append(d.Rows, row)
		d.Labels = append(d.Labels, label)
	}

	counts := d.ClassCounts()
	log.Info().
		Int("rows", d.Len()).
		Int("dropped", dropped).
		Int("negative", counts[0]).
		Int("positive", counts[1]).
		Msg("dataset loaded")
	if d.Len() == 0 {
		return nil, errors.New("dataset has no complete rows")
	}
	return d, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseLabel(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	switch f {
	case 0:
		return 0, true
	case 1:
		return 1, true
	}
	return 0, false
}
