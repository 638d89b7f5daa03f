package activity

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/pkg"

	log "github.com/sirupsen/logrus"
)

type SourceFormatError struct {
	Source string
	Err    error
}

func (e *SourceFormatError) Error() string {
	return fmt.Sprintf("activity export [%s] cannot be read: %s", e.Source, e.Err)
}

func (e *SourceFormatError) Unwrap() []error {
	return []error{table.ErrSourceFormat, e.Err}
}

const (
	fieldType        = "type"
	fieldDate        = "date"
	fieldTitle       = "title"
	fieldDistance    = "distance"
	fieldDuration    = "duration"
	fieldAvgHR       = "avg_hr"
	fieldCadence     = "cadence"
	fieldPace        = "pace"
	fieldAscent      = "ascent"
	fieldGroundTime  = "ground_contact"
	fieldBodyBattery = "body_battery"
	fieldAerobicTE   = "aerobic_te"
)

// canonical export headers per field, tried in order
var fieldHeaders = map[string][]string{
	fieldType:        {"activity_type", "type", "sport"},
	fieldDate:        {"date", "start_time", "start"},
	fieldTitle:       {"title", "name", "activity_name"},
	fieldDistance:    {"distance", "distance_mi"},
	fieldDuration:    {"time", "duration", "moving_time", "elapsed_time"},
	fieldAvgHR:       {"avg_hr", "average_heart_rate", "avg_heart_rate"},
	fieldCadence:     {"avg_run_cadence", "avg_cadence"},
	fieldPace:        {"avg_pace", "average_pace"},
	fieldAscent:      {"total_ascent", "elevation_gain", "ascent"},
	fieldGroundTime:  {"avg_ground_contact_time", "ground_contact_time"},
	fieldBodyBattery: {"body_battery_drain"},
	fieldAerobicTE:   {"aerobic_te", "aerobic_training_effect"},
}

// Load reads a Garmin Connect activities CSV export from disk.
func Load(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceFormatError{Source: path, Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("close activity export [%s]: %s", path, err)
		}
	}()
	return Read(f, path)
}

// LoadBytes reads an export kept in memory, e.g. a saved upload.
func LoadBytes(data []byte) (*Log, error) {
	return Read(bytes.NewReader(data), "upload")
}

func Read(r io.Reader, name string) (*Log, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return NewLog(nil), nil
	}
	if err != nil {
		return nil, &SourceFormatError{Source: name, Err: err}
	}

	index := headerIndex(header)
	if _, ok := index[fieldDate]; !ok {
		log.Warnf("activity export [%s]: no date column in header %v", name, header)
	}

	var activities []Activity
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &SourceFormatError{Source: name, Err: err}
		}
		a, ok := parseRecord(index, record)
		if !ok {
			continue
		}
		activities = append(activities, a)
	}

	return NewLog(activities), nil
}

func headerIndex(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		positions[table.CanonicalColumn(h)] = i
	}

	index := make(map[string]int, len(fieldHeaders))
	for field, candidates := range fieldHeaders {
		for _, c := range candidates {
			if pos, ok := positions[c]; ok {
				index[field] = pos
				break
			}
		}
	}
	return index
}

func parseRecord(index map[string]int, record []string) (Activity, bool) {
	cell := func(field string) string {
		pos, ok := index[field]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}
	number := func(field string) *float64 {
		v, ok := table.ParseNumber(cell(field))
		if !ok {
			return nil
		}
		return &v
	}

	date, ok := pkg.ParseSourceDate(cell(fieldDate))
	if !ok {
		return Activity{}, false
	}

	a := Activity{
		Date:            date,
		Type:            cell(fieldType),
		Title:           cell(fieldTitle),
		DistanceMi:      number(fieldDistance),
		AvgHR:           positive(number(fieldAvgHR)),
		AvgCadence:      positive(number(fieldCadence)),
		ElevationGainFt: number(fieldAscent),
		GroundContactMs: positive(number(fieldGroundTime)),
		AerobicTE:       number(fieldAerobicTE),
	}
	a.Kind = classify(a.Type)
	a.IsTrail = isTrail(a.Type, a.Title)

	// garmin reports drain as a negative delta
	if drain := number(fieldBodyBattery); drain != nil {
		v := math.Abs(*drain)
		a.BodyBatteryDrain = &v
	}

	if d, ok := parseDuration(cell(fieldDuration)); ok {
		a.DurationMin = &d
	}
	if p, ok := parseDuration(cell(fieldPace)); ok && p > 0 {
		a.AvgPaceMinPerMi = &p
	} else if a.DurationMin != nil && a.Miles() > 0 {
		p := *a.DurationMin / a.Miles()
		a.AvgPaceMinPerMi = &p
	}

	return a, true
}

func classify(activityType string) Kind {
	t := strings.ToLower(activityType)
	switch {
	case strings.Contains(t, "run"):
		return KindRun
	case strings.Contains(t, "strength"):
		return KindStrength
	default:
		return KindOther
	}
}

func isTrail(activityType, title string) bool {
	return strings.Contains(strings.ToLower(activityType), "trail") ||
		strings.Contains(strings.ToLower(title), "trail")
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// parseDuration parses hh:mm:ss, mm:ss or plain minutes into decimal minutes.
func parseDuration(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "--" {
		return 0, false
	}
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, false
	}

	seconds := 0.0
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		seconds = seconds*60 + v
	}
	if len(parts) == 1 {
		// bare number is already minutes
		return seconds, true
	}
	return seconds / 60, true
}
