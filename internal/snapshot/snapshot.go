package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/source/activity"
	"github.com/bhackerb/PeakForm-C/internal/source/nutrition"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/window"
	"github.com/bhackerb/PeakForm-C/pkg"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// reserved table names; sheet names never start with an underscore
const (
	tableMeta       = "_meta"
	tableKeywords   = "_keywords"
	tableActivities = "_activities"

	headerRow = -1
	// marks a row that exists even when it carries no cells
	rowMarker = ""

	formatVersion = 1
)

var ErrCorrupt = errors.New("corrupt snapshot")

// Snapshot is everything needed to re-run an analysis from scratch: the
// normalized source tables and the resolved window.
type Snapshot struct {
	Nutrition  *nutrition.Source
	Activities *activity.Log
	Window     window.Window
}

// cell is one long-format value. A table row spreads over one cell per
// present column.
type cell struct {
	Table  string  `parquet:"name=table, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Row    int64   `parquet:"name=row, type=INT64"`
	Date   string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Column string  `parquet:"name=column, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value  float64 `parquet:"name=value, type=DOUBLE"`
	Text   string  `parquet:"name=text, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Encode writes s as a single Parquet blob.
func Encode(s Snapshot) ([]byte, error) {
	cells := []cell{
		{Table: tableMeta, Column: "version", Value: formatVersion},
		{Table: tableMeta, Column: "window_start", Text: s.Window.Start.Format(pkg.DateLayout)},
		{Table: tableMeta, Column: "window_end", Text: s.Window.End.Format(pkg.DateLayout)},
	}

	src := s.Nutrition
	if src == nil {
		src = nutrition.FromTables(nil, nil)
	}
	tables := src.Tables()
	for _, name := range nutrition.Sheets {
		cells = append(cells, tableCells(name, tables[name])...)
	}
	cells = append(cells, keywordCells(src.Keywords)...)
	if s.Activities != nil {
		cells = append(cells, activityCells(s.Activities.Activities)...)
	}

	fw := buffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(cell), 4)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, c := range cells {
		if err := pw.Write(c); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("write cell: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finish parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func tableCells(name string, t *table.Table) []cell {
	if t == nil {
		return nil
	}
	var cells []cell
	for i, col := range t.Columns {
		cells = append(cells, cell{Table: name, Row: headerRow, Column: col, Value: float64(i)})
	}
	for i, r := range t.Rows {
		date := r.Date.Format(pkg.DateLayout)
		cells = append(cells, cell{Table: name, Row: int64(i), Date: date, Column: rowMarker})
		for _, col := range sortedKeys(r.Values) {
			cells = append(cells, cell{Table: name, Row: int64(i), Date: date, Column: col, Value: r.Values[col]})
		}
	}
	return cells
}

func keywordCells(kw table.Keywords) []cell {
	if kw == nil {
		return nil
	}
	var cells []cell
	concepts := make([]string, 0, len(kw))
	for c := range kw {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)
	for _, c := range concepts {
		for i, k := range kw[c] {
			cells = append(cells, cell{Table: tableKeywords, Row: int64(i), Column: c, Text: k})
		}
	}
	return cells
}

var activityFields = []struct {
	column string
	get    func(a *activity.Activity) **float64
}{
	{"distance_mi", func(a *activity.Activity) **float64 { return &a.DistanceMi }},
	{"duration_min", func(a *activity.Activity) **float64 { return &a.DurationMin }},
	{"avg_pace_min_per_mi", func(a *activity.Activity) **float64 { return &a.AvgPaceMinPerMi }},
	{"avg_hr", func(a *activity.Activity) **float64 { return &a.AvgHR }},
	{"avg_cadence", func(a *activity.Activity) **float64 { return &a.AvgCadence }},
	{"elevation_gain_ft", func(a *activity.Activity) **float64 { return &a.ElevationGainFt }},
	{"body_battery_drain", func(a *activity.Activity) **float64 { return &a.BodyBatteryDrain }},
	{"ground_contact_ms", func(a *activity.Activity) **float64 { return &a.GroundContactMs }},
	{"aerobic_te", func(a *activity.Activity) **float64 { return &a.AerobicTE }},
}

func activityCells(acts []activity.Activity) []cell {
	var cells []cell
	for i := range acts {
		a := &acts[i]
		row := int64(i)
		date := a.Date.Format(time.RFC3339Nano)
		trail := 0.0
		if a.IsTrail {
			trail = 1
		}
		cells = append(cells,
			cell{Table: tableActivities, Row: row, Date: date, Column: "kind", Text: string(a.Kind)},
			cell{Table: tableActivities, Row: row, Date: date, Column: "type", Text: a.Type},
			cell{Table: tableActivities, Row: row, Date: date, Column: "title", Text: a.Title},
			cell{Table: tableActivities, Row: row, Date: date, Column: "is_trail", Value: trail},
		)
		for _, f := range activityFields {
			if v := *f.get(a); v != nil {
				cells = append(cells, cell{Table: tableActivities, Row: row, Date: date, Column: f.column, Value: *v})
			}
		}
	}
	return cells
}

// Decode reconstructs a snapshot written by Encode.
func Decode(data []byte) (_ *Snapshot, err error) {
	// the parquet reader panics on some malformed footers
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(fr, new(cell), 4)
	if err != nil {
		return nil, fmt.Errorf("%w: open parquet: %s", ErrCorrupt, err)
	}
	defer pr.ReadStop()

	cells := make([]cell, pr.GetNumRows())
	if err := pr.Read(&cells); err != nil {
		return nil, fmt.Errorf("%w: read cells: %s", ErrCorrupt, err)
	}

	var (
		meta     = make(map[string]cell)
		grouped  = make(map[string][]cell)
		keywords table.Keywords
		acts     = make(map[int64]*activity.Activity)
	)
	for _, c := range cells {
		switch c.Table {
		case tableMeta:
			meta[c.Column] = c
		case tableKeywords:
			if keywords == nil {
				keywords = make(table.Keywords)
			}
			keywords[c.Column] = append(keywords[c.Column], c.Text)
		case tableActivities:
			if err := applyActivityCell(acts, c); err != nil {
				return nil, err
			}
		default:
			grouped[c.Table] = append(grouped[c.Table], c)
		}
	}

	if v, ok := meta["version"]; !ok || v.Value != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version", ErrCorrupt)
	}
	start, err := time.Parse(pkg.DateLayout, meta["window_start"].Text)
	if err != nil {
		return nil, fmt.Errorf("%w: window start: %s", ErrCorrupt, err)
	}
	end, err := time.Parse(pkg.DateLayout, meta["window_end"].Text)
	if err != nil {
		return nil, fmt.Errorf("%w: window end: %s", ErrCorrupt, err)
	}

	tables := make(map[string]*table.Table, len(grouped))
	for name, cs := range grouped {
		t, err := rebuildTable(name, cs)
		if err != nil {
			return nil, err
		}
		tables[name] = t
	}

	rows := make([]int64, 0, len(acts))
	for i := range acts {
		rows = append(rows, i)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
	list := make([]activity.Activity, 0, len(rows))
	for _, i := range rows {
		list = append(list, *acts[i])
	}

	return &Snapshot{
		Nutrition:  nutrition.FromTables(tables, keywords),
		Activities: activity.NewLog(list),
		Window:     window.Window{Start: start, End: end},
	}, nil
}

func rebuildTable(name string, cells []cell) (*table.Table, error) {
	var columns []string
	byRow := make(map[int64]*table.Row)
	for _, c := range cells {
		if c.Row == headerRow {
			idx := int(c.Value)
			for len(columns) <= idx {
				columns = append(columns, "")
			}
			columns[idx] = c.Column
			continue
		}
		r, ok := byRow[c.Row]
		if !ok {
			date, err := time.Parse(pkg.DateLayout, c.Date)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s row %d: %s", ErrCorrupt, name, c.Row, err)
			}
			r = &table.Row{Date: date, Values: make(map[string]float64)}
			byRow[c.Row] = r
		}
		if c.Column != rowMarker {
			r.Values[c.Column] = c.Value
		}
	}

	idx := make([]int64, 0, len(byRow))
	for i := range byRow {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })
	rows := make([]table.Row, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, *byRow[i])
	}
	if len(rows) == 0 {
		rows = nil
	}
	return table.Build(name, columns, rows), nil
}

func applyActivityCell(acts map[int64]*activity.Activity, c cell) error {
	a, ok := acts[c.Row]
	if !ok {
		date, err := time.Parse(time.RFC3339Nano, c.Date)
		if err != nil {
			return fmt.Errorf("%w: activity %d: %s", ErrCorrupt, c.Row, err)
		}
		a = &activity.Activity{Date: date}
		acts[c.Row] = a
	}

	switch c.Column {
	case "kind":
		a.Kind = activity.Kind(c.Text)
	case "type":
		a.Type = c.Text
	case "title":
		a.Title = c.Text
	case "is_trail":
		a.IsTrail = c.Value == 1
	default:
		for _, f := range activityFields {
			if f.column == c.Column {
				v := c.Value
				*f.get(a) = &v
				return nil
			}
		}
		return fmt.Errorf("%w: unknown activity column %q", ErrCorrupt, c.Column)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
