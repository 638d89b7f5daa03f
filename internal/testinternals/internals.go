package testinternals

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a generated nutrition export.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Workbook renders sheets into XLSX bytes.
func Workbook(sheets ...Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	for _, s := range sheets {
		if _, err := f.NewSheet(s.Name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.Name, err)
		}
		header := make([]any, len(s.Header))
		for i, h := range s.Header {
			header[i] = h
		}
		if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", s.Name, err)
		}
		for i, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			r := row
			if err := f.SetSheetRow(s.Name, cell, &r); err != nil {
				return nil, fmt.Errorf("write row %d of %s: %w", i, s.Name, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

var GarminHeader = []string{
	"Activity Type", "Date", "Favorite", "Title", "Distance", "Calories", "Time",
	"Avg HR", "Max HR", "Aerobic TE", "Avg Run Cadence", "Max Run Cadence",
	"Avg Pace", "Best Pace", "Total Ascent", "Total Descent",
	"Avg Ground Contact Time", "Body Battery Drain",
}

// ActivityRow is one line of a generated Garmin export. Empty fields are written as "--".
type ActivityRow struct {
	Type        string
	Date        time.Time
	Title       string
	Distance    string
	Time        string
	AvgHR       string
	AerobicTE   string
	Cadence     string
	Pace        string
	Ascent      string
	GroundTime  string
	BodyBattery string
}

func (r ActivityRow) record() []string {
	orDash := func(s string) string {
		if s == "" {
			return "--"
		}
		return s
	}
	return []string{
		r.Type,
		r.Date.Add(7*time.Hour).Format("2006-01-02 15:04:05"),
		"false",
		r.Title,
		orDash(r.Distance),
		"--",
		orDash(r.Time),
		orDash(r.AvgHR),
		"--",
		orDash(r.AerobicTE),
		orDash(r.Cadence),
		"--",
		orDash(r.Pace),
		"--",
		orDash(r.Ascent),
		"--",
		orDash(r.GroundTime),
		orDash(r.BodyBattery),
	}
}

// ActivityCSV renders rows into a Garmin Connect activities export.
func ActivityCSV(rows []ActivityRow) []byte {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(GarminHeader)
	for _, r := range rows {
		_ = w.Write(r.record())
	}
	w.Flush()
	return buf.Bytes()
}

// Run builds a road run row with the given distance, pace and heart rate.
func Run(date time.Time, miles float64, pace string, hr int) ActivityRow {
	return ActivityRow{
		Type:        "Running",
		Date:        date,
		Title:       "Morning Run",
		Distance:    fmt.Sprintf("%.2f", miles),
		Time:        "01:00:00",
		AvgHR:       fmt.Sprintf("%d", hr),
		AerobicTE:   "3.1",
		Cadence:     "172",
		Pace:        pace,
		Ascent:      "120",
		GroundTime:  "245",
		BodyBattery: "-12",
	}
}

// RandomRuns generates a deterministic pseudo-random run log, one run every
// other day starting at start.
func RandomRuns(seed int64, start time.Time, days int) []ActivityRow {
	faker := gofakeit.New(seed)
	var rows []ActivityRow
	for d := 0; d < days; d += 2 {
		row := Run(
			start.AddDate(0, 0, d),
			faker.Float64Range(3, 12),
			fmt.Sprintf("%d:%02d", faker.IntRange(7, 10), faker.IntRange(0, 59)),
			faker.IntRange(130, 170),
		)
		if faker.Bool() {
			row.Type = "Trail Running"
			row.Title = "Trail " + faker.RandomString([]string{"Loop", "Ridge", "Canyon"})
		}
		row.BodyBattery = fmt.Sprintf("-%d", faker.IntRange(5, 25))
		rows = append(rows, row)
	}
	return rows
}
