// Package dataset holds the in-memory record store the pipeline
// operates on: one Observation per country per day, plus the set of
// columns that were actually present in the source.
package dataset

import (
	"sort"
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
)

// ColumnSet tracks which optional columns exist in a dataset. Columns
// absent from the source are absent here and are never synthesized.
type ColumnSet map[string]struct{}

// NewColumnSet builds a set from column names.
func NewColumnSet(columns ...string) ColumnSet {
	s := make(ColumnSet, len(columns))
	for _, c := range columns {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the column exists in the dataset.
func (s ColumnSet) Has(column string) bool {
	_, ok := s[column]
	return ok
}

// Add marks a column as present.
func (s ColumnSet) Add(column string) {
	s[column] = struct{}{}
}

// Sorted returns the column names in lexical order.
func (s ColumnSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Dataset is a tabular snapshot of country-day observations.
type Dataset struct {
	Rows    []*contracts.Observation
	Columns ColumnSet
}

// New builds a dataset over rows with the given column set.
func New(rows []*contracts.Observation, columns ColumnSet) *Dataset {
	if columns == nil {
		columns = make(ColumnSet)
	}
	return &Dataset{Rows: rows, Columns: columns}
}

// Len returns the row count.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Sort orders rows by (iso_code ascending, date ascending). Every
// per-entity stage assumes this ordering.
func (d *Dataset) Sort() {
	sort.SliceStable(d.Rows, func(i, j int) bool {
		a, b := d.Rows[i], d.Rows[j]
		if a.IsoCode != b.IsoCode {
			return a.IsoCode < b.IsoCode
		}
		return a.Date.Before(b.Date)
	})
}

// Partition splits the sorted rows into contiguous per-entity slices,
// in iso_code order. The slices alias the dataset's rows; grouped
// stages mutate through them without copying.
func (d *Dataset) Partition() [][]*contracts.Observation {
	var groups [][]*contracts.Observation
	start := 0
	for i := 1; i <= len(d.Rows); i++ {
		if i == len(d.Rows) || d.Rows[i].IsoCode != d.Rows[start].IsoCode {
			groups = append(groups, d.Rows[start:i])
			start = i
		}
	}
	return groups
}

// Countries returns the number of distinct entities.
func (d *Dataset) Countries() int {
	seen := make(map[string]struct{})
	for _, row := range d.Rows {
		seen[row.IsoCode] = struct{}{}
	}
	return len(seen)
}

// DateRange returns the min and max dates. ok is false for an empty
// dataset.
func (d *Dataset) DateRange() (min, max time.Time, ok bool) {
	if len(d.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = d.Rows[0].Date, d.Rows[0].Date
	for _, row := range d.Rows[1:] {
		if row.Date.Before(min) {
			min = row.Date
		}
		if row.Date.After(max) {
			max = row.Date
		}
	}
	return min, max, true
}

// Latest returns the rows carrying the dataset's most recent date,
// one per entity at most.
func (d *Dataset) Latest() []*contracts.Observation {
	_, max, ok := d.DateRange()
	if !ok {
		return nil
	}
	var latest []*contracts.Observation
	for _, row := range d.Rows {
		if row.Date.Equal(max) {
			latest = append(latest, row)
		}
	}
	return latest
}
