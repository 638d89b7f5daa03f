package nutrition

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/pkg"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// largest serial excel can represent (9999-12-31)
const maxExcelSerial = 2958465

type SourceFormatError struct {
	Source string
	Err    error
}

func (e *SourceFormatError) Error() string {
	return fmt.Sprintf("nutrition export [%s] cannot be read: %s", e.Source, e.Err)
}

func (e *SourceFormatError) Unwrap() []error {
	return []error{table.ErrSourceFormat, e.Err}
}

type Option func(*loader)

// WithKeywords overrides the column discovery strategy.
func WithKeywords(kw table.Keywords) Option {
	return func(l *loader) {
		l.keywords = kw
	}
}

type loader struct {
	keywords table.Keywords
}

func newLoader(opts []Option) *loader {
	l := &loader{keywords: table.DefaultKeywords()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads a MacroFactor XLSX export from disk.
func Load(path string, opts ...Option) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &SourceFormatError{Source: path, Err: err}
	}
	defer closeFile(f, path)
	return newLoader(opts).read(f, path)
}

// LoadBytes reads an export kept in memory, e.g. a saved upload.
func LoadBytes(data []byte, opts ...Option) (*Source, error) {
	return Read(bytes.NewReader(data), "upload", opts...)
}

func Read(r io.Reader, name string, opts ...Option) (*Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &SourceFormatError{Source: name, Err: err}
	}
	defer closeFile(f, name)
	return newLoader(opts).read(f, name)
}

func closeFile(f *excelize.File, name string) {
	if err := f.Close(); err != nil {
		log.Warnf("close nutrition export [%s]: %s", name, err)
	}
}

func (l *loader) read(f *excelize.File, name string) (*Source, error) {
	available := f.GetSheetList()
	tables := make(map[string]*table.Table, len(Sheets))
	for _, sheet := range Sheets {
		actual, ok := matchSheet(available, sheet)
		if !ok {
			log.Debugf("nutrition export [%s]: sheet [%s] missing", name, sheet)
			tables[sheet] = table.Empty(sheet)
			continue
		}

		rows, err := f.GetRows(actual, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &SourceFormatError{
				Source: name,
				Err:    fmt.Errorf("read sheet %s: %w", actual, err),
			}
		}
		tables[sheet] = sheetTable(sheet, rows)
	}

	return FromTables(tables, l.keywords), nil
}

func matchSheet(available []string, sheet string) (string, bool) {
	for _, s := range available {
		if s == sheet {
			return s, true
		}
	}
	for _, s := range available {
		if strings.EqualFold(strings.TrimSpace(s), sheet) {
			return s, true
		}
	}
	return "", false
}

// sheetTable turns raw sheet rows into a table. The first column is always the
// date; rows whose date cannot be parsed are dropped.
func sheetTable(sheet string, rows [][]string) *table.Table {
	if len(rows) == 0 {
		return table.Empty(sheet)
	}

	header := rows[0]
	columns := make([]string, 0, len(header))
	for i := 1; i < len(header); i++ {
		h := strings.TrimSpace(header[i])
		if h == "" {
			h = fmt.Sprintf("col_%d", i)
		}
		if !entitySheets[sheet] {
			h = table.CanonicalColumn(h)
		}
		columns = append(columns, h)
	}

	var parsed []table.Row
	for _, raw := range rows[1:] {
		if len(raw) == 0 {
			continue
		}
		date, ok := parseDateCell(raw[0])
		if !ok {
			continue
		}
		values := make(map[string]float64, len(columns))
		for i, col := range columns {
			idx := i + 1
			if idx >= len(raw) {
				break
			}
			if v, ok := table.ParseNumber(raw[idx]); ok {
				values[col] = v
			}
		}
		parsed = append(parsed, table.Row{Date: date, Values: values})
	}

	if len(parsed) == 0 {
		return table.Empty(sheet)
	}
	return table.Build(sheet, columns, parsed)
}

// parseDateCell accepts native date cells (excel serials) and text dates.
func parseDateCell(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial < 1 || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return pkg.Midnight(t), true
	}
	return pkg.ParseSourceDate(raw)
}
