package table

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/pkg"
)

// ErrSourceFormat is wrapped by every loader error raised when a source
// container cannot be opened or decoded.
var ErrSourceFormat = errors.New("source format")

// Row is a single calendar day of a table. A missing cell is an absent key.
type Row struct {
	Date   time.Time
	Values map[string]float64
}

func (r Row) Get(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Table is a named, date-indexed table: rows ascending by date, unique dates.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Build sorts rows by date and merges rows sharing a date. For duplicated
// dates, present cells of later rows overwrite earlier ones.
func Build(name string, columns []string, rows []Row) *Table {
	t := &Table{
		Name:    name,
		Columns: columns,
	}
	if len(rows) == 0 {
		return t
	}

	byDate := make(map[time.Time]int, len(rows))
	for _, r := range rows {
		date := pkg.Midnight(r.Date)
		if idx, ok := byDate[date]; ok {
			for k, v := range r.Values {
				t.Rows[idx].Values[k] = v
			}
			continue
		}
		values := make(map[string]float64, len(r.Values))
		for k, v := range r.Values {
			values[k] = v
		}
		byDate[date] = len(t.Rows)
		t.Rows = append(t.Rows, Row{Date: date, Values: values})
	}

	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Date.Before(t.Rows[j].Date)
	})

	return t
}

// Empty returns an empty table with the given name.
func Empty(name string) *Table {
	return &Table{Name: name}
}

func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

func (t *Table) HasColumn(column string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Range returns the rows with from <= date <= to.
func (t *Table) Range(from, to time.Time) []Row {
	if t == nil {
		return nil
	}
	from, to = pkg.Midnight(from), pkg.Midnight(to)
	lo := sort.Search(len(t.Rows), func(i int) bool {
		return !t.Rows[i].Date.Before(from)
	})
	hi := sort.Search(len(t.Rows), func(i int) bool {
		return t.Rows[i].Date.After(to)
	})
	if lo >= hi {
		return nil
	}
	return t.Rows[lo:hi]
}

// Before returns all rows dated strictly before d.
func (t *Table) Before(d time.Time) []Row {
	if t == nil {
		return nil
	}
	d = pkg.Midnight(d)
	hi := sort.Search(len(t.Rows), func(i int) bool {
		return !t.Rows[i].Date.Before(d)
	})
	return t.Rows[:hi]
}

// Latest returns the most recent row.
func (t *Table) Latest() (Row, bool) {
	if t.IsEmpty() {
		return Row{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// Find resolves a concept to a column using the keyword strategy.
func (t *Table) Find(kw Keywords, concept string) (string, bool) {
	if t == nil {
		return "", false
	}
	return kw.Find(t.Columns, concept)
}

// Values collects the present values of column across rows.
func Values(rows []Row, column string) []float64 {
	if column == "" {
		return nil
	}
	var out []float64
	for _, r := range rows {
		if v, ok := r.Values[column]; ok {
			out = append(out, v)
		}
	}
	return out
}

// CanonicalColumn normalizes a concept column header to lower snake case.
func CanonicalColumn(header string) string {
	c := strings.ToLower(strings.TrimSpace(header))
	c = strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"/", "_per_",
		"-", "_",
		"%", "pct",
	).Replace(c)
	for strings.Contains(c, "__") {
		c = strings.ReplaceAll(c, "__", "_")
	}
	return strings.Trim(c, "_")
}

// ParseNumber coerces a cell to a float. Blank cells, placeholders and
// non-numeric text are reported as missing.
func ParseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" || raw == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
