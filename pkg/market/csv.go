package market

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"
)

// WriteCSV renders the snapshot as CSV for export. The column order is
// stable: timestamp, the raw series for the snapshot kind (price or
// open/high/low/close), volume when present, then derived series in lexical
// name order. Timestamps are RFC 3339 UTC; absent values are empty cells.
func (s *Snapshot) WriteCSV(w io.Writer) error {
	columns := []string{"timestamp"}
	series := []Series{}

	if s.Kind == KindOHLC {
		columns = append(columns, "open", "high", "low", "close")
		series = append(series, s.Open, s.High, s.Low, s.Close)
	} else {
		columns = append(columns, "price")
		series = append(series, s.Price)
	}
	if len(s.Volume) > 0 {
		columns = append(columns, "volume")
		series = append(series, s.Volume)
	}
	for _, name := range s.DerivedNames() {
		columns = append(columns, name)
		series = append(series, s.Derived[name])
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	axis := s.Axis()
	row := make([]string, len(columns))
	for i := range axis {
		row[0] = axis[i].Time.UTC().Format(time.RFC3339)
		for col, sr := range series {
			row[col+1] = formatCell(sr, i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(s Series, i int) string {
	if i >= len(s) || math.IsNaN(s[i].Value) {
		return ""
	}
	return strconv.FormatFloat(s[i].Value, 'f', -1, 64)
}
