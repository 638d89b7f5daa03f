package activity

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/pkg"

	log "github.com/sirupsen/logrus"
	"github.com/tormoder/fit"
)

const (
	metersPerMile = 1609.344
	feetPerMeter  = 3.28084
)

// LoadFIT decodes a single FIT activity file into an activity.
func LoadFIT(path string) (Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Activity{}, &SourceFormatError{Source: path, Err: err}
	}
	return ReadFIT(bytes.NewReader(data), path)
}

func ReadFIT(r io.Reader, name string) (Activity, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return Activity{}, &SourceFormatError{Source: name, Err: fmt.Errorf("decode FIT file: %w", err)}
	}
	file, err := decoded.Activity()
	if err != nil {
		return Activity{}, &SourceFormatError{Source: name, Err: fmt.Errorf("activity FIT expected: %w", err)}
	}
	if len(file.Sessions) == 0 {
		return Activity{}, &SourceFormatError{Source: name, Err: fmt.Errorf("activity file has no session message")}
	}

	session := file.Sessions[0]
	start := session.StartTime
	if !validTime(start) {
		start = session.Timestamp
	}
	if !validTime(start) {
		return Activity{}, &SourceFormatError{Source: name, Err: fmt.Errorf("session has no start time")}
	}

	a := Activity{
		Date:  pkg.Midnight(start.In(localZone(file.Activity))),
		Type:  fmt.Sprint(session.Sport),
		Title: strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
	}
	switch session.Sport {
	case fit.SportRunning:
		a.Kind = KindRun
	case fit.SportTraining:
		a.Kind = KindStrength
	default:
		a.Kind = classify(a.Type)
	}
	a.IsTrail = session.SubSport == fit.SubSportTrail || isTrail(a.Type, a.Title)

	if meters := session.GetTotalDistanceScaled(); isPositive(meters) {
		a.DistanceMi = ptr(meters / metersPerMile)
	}
	if seconds := session.GetTotalTimerTimeScaled(); isPositive(seconds) {
		a.DurationMin = ptr(seconds / 60)
	}
	if a.DurationMin != nil && a.Miles() > 0 {
		a.AvgPaceMinPerMi = ptr(*a.DurationMin / a.Miles())
	}
	if session.AvgHeartRate != math.MaxUint8 && session.AvgHeartRate > 0 {
		a.AvgHR = ptr(float64(session.AvgHeartRate))
	}
	if session.AvgCadence != math.MaxUint8 && session.AvgCadence > 0 {
		// running cadence is recorded per leg
		a.AvgCadence = ptr(float64(session.AvgCadence) * 2)
	}
	if session.TotalAscent != math.MaxUint16 {
		a.ElevationGainFt = ptr(float64(session.TotalAscent) * feetPerMeter)
	}
	if stance := session.GetAvgStanceTimeScaled(); isPositive(stance) {
		a.GroundContactMs = ptr(stance)
	}
	if te := session.GetTotalTrainingEffectScaled(); isPositive(te) {
		a.AerobicTE = ptr(te)
	}

	return a, nil
}

// LoadFITDir decodes every .fit file in dir. Files that fail to decode are
// skipped with a warning.
func LoadFITDir(dir string) ([]Activity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fit dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".fit") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var activities []Activity
	for _, n := range names {
		a, err := LoadFIT(filepath.Join(dir, n))
		if err != nil {
			log.Warnf("skipping fit file [%s]: %s", n, err)
			continue
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// maxZoneOffset bounds real UTC offsets; anything wider is a corrupt clock.
const maxZoneOffset = 14 * time.Hour

// localZone derives the device's UTC offset from the activity message, which
// carries the same instant as UTC and as local wall time. Without one the
// activity is dated in UTC.
func localZone(msg *fit.ActivityMsg) *time.Location {
	if msg == nil || !validTime(msg.Timestamp) || !validTime(msg.LocalTimestamp) {
		return time.UTC
	}
	lt := msg.LocalTimestamp
	wall := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), 0, time.UTC)
	offset := wall.Sub(msg.Timestamp)
	if offset == 0 || offset > maxZoneOffset || offset < -maxZoneOffset {
		return time.UTC
	}
	return time.FixedZone("device", int(offset/time.Second))
}

func validTime(t time.Time) bool {
	return !t.IsZero() && !fit.IsBaseTime(t)
}

func isPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func ptr(v float64) *float64 {
	return &v
}
