// Package export writes estimates and sensitivity tables for other tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/evrange/core/history"
	"github.com/kilianp07/evrange/core/model"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSensitivityCSV writes one row per sensitivity point.
func WriteSensitivityCSV(w io.Writer, unit model.DistanceUnit, points []model.SensitivityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "input", "range_" + string(unit)}); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{p.Label, formatFloat(p.Input), formatFloat(p.Range)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes one row per record. Factor columns are the sorted
// union of the factor names present in records.
func WriteHistoryCSV(w io.Writer, records []history.Record) error {
	names := factorNames(records)
	cw := csv.NewWriter(w)
	header := append([]string{"id", "timestamp", "model", "vehicle_id", "unit", "range"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Model,
			r.VehicleID,
			string(r.Estimate.Unit),
			formatFloat(r.Estimate.Range),
		}
		for _, n := range names {
			v, ok := r.Estimate.Factors[n]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSensitivity writes the table in the given format.
func WriteSensitivity(w io.Writer, format string, unit model.DistanceUnit, points []model.SensitivityPoint) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, points)
	case FormatCSV:
		return WriteSensitivityCSV(w, unit, points)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func factorNames(records []history.Record) []string {
	seen := map[string]struct{}{}
	for _, r := range records {
		for n := range r.Estimate.Factors {
			seen[n] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
