package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/mind-engage/savings-forecast/internal/model"
)

// LoadCSV reads a header-first CSV. Columns named in categorical stay strings;
// all others must parse as floats.
func LoadCSV(r io.Reader, categorical []string) (*model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: empty file")
		}
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	ds := model.NewDataset()
	ds.Columns = header
	for _, name := range header {
		if slices.Contains(categorical, name) {
			ds.Categorical[name] = nil
		} else {
			ds.Numeric[name] = nil
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		for i, name := range header {
			cell := strings.TrimSpace(rec[i])
			if _, ok := ds.Categorical[name]; ok {
				ds.Categorical[name] = append(ds.Categorical[name], cell)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("csv: line %d column %s: %q is not numeric", line, name, cell)
			}
			ds.Numeric[name] = append(ds.Numeric[name], v)
		}
		ds.Rows++
	}
	if ds.Rows == 0 {
		return nil, errors.New("csv: no data rows")
	}
	return ds, nil
}

// WriteCSV writes ds with its column order preserved.
func WriteCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	rec := make([]string, len(ds.Columns))
	for i := 0; i < ds.Rows; i++ {
		for j, name := range ds.Columns {
			if col, ok := ds.Categorical[name]; ok {
				rec[j] = col[i]
			} else {
				rec[j] = strconv.FormatFloat(ds.Numeric[name][i], 'f', -1, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
