package activity_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/source/activity"
	"github.com/bhackerb/PeakForm-C/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
)

func encodeFIT(t *testing.T, fileType fit.FileType, act *fit.ActivityMsg, sessions ...*fit.SessionMsg) []byte {
	t.Helper()

	file, err := fit.NewFile(fileType, fit.NewHeader(fit.V20, true))
	require.NoError(t, err)
	if fileType == fit.FileTypeActivity {
		a, err := file.Activity()
		require.NoError(t, err)
		a.Activity = act
		a.Sessions = append(a.Sessions, sessions...)
	}

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

// eveningTrailRun is a Sunday 18:30 run in UTC-8, which is already Monday in UTC.
func eveningTrailRun() (*fit.ActivityMsg, *fit.SessionMsg) {
	start := time.Date(2026, 2, 23, 2, 30, 0, 0, time.UTC)

	session := fit.NewSessionMsg()
	session.StartTime = start
	session.Timestamp = start.Add(90 * time.Minute)
	session.Sport = fit.SportRunning
	session.SubSport = fit.SubSportTrail
	session.TotalDistance = 1609344 // cm, 10 mi
	session.TotalTimerTime = 90 * 60 * 1000
	session.AvgHeartRate = 152
	session.AvgCadence = 88
	session.TotalAscent = 300
	session.AvgStanceTime = 2450
	session.TotalTrainingEffect = 34

	act := fit.NewActivityMsg()
	act.Timestamp = session.Timestamp
	act.LocalTimestamp = session.Timestamp.In(time.FixedZone("PST", -8*60*60))
	act.NumSessions = 1
	return act, session
}

func TestReadFIT_Run(t *testing.T) {
	act, session := eveningTrailRun()
	data := encodeFIT(t, fit.FileTypeActivity, act, session)

	a, err := activity.ReadFIT(bytes.NewReader(data), "exports/evening-trail.fit")
	require.NoError(t, err)

	assert.Equal(t, day(22), a.Date, "dated on the local calendar day")
	assert.Equal(t, activity.KindRun, a.Kind)
	assert.Equal(t, "Running", a.Type)
	assert.Equal(t, "evening-trail", a.Title)
	assert.True(t, a.IsTrail)

	require.NotNil(t, a.DistanceMi)
	assert.InDelta(t, 10.0, *a.DistanceMi, 1e-9)
	require.NotNil(t, a.DurationMin)
	assert.InDelta(t, 90.0, *a.DurationMin, 1e-9)
	require.NotNil(t, a.AvgPaceMinPerMi)
	assert.InDelta(t, 9.0, *a.AvgPaceMinPerMi, 1e-9)
	require.NotNil(t, a.AvgHR)
	assert.Equal(t, 152.0, *a.AvgHR)
	require.NotNil(t, a.AvgCadence)
	assert.Equal(t, 176.0, *a.AvgCadence, "cadence counts both legs")
	require.NotNil(t, a.ElevationGainFt)
	assert.InDelta(t, 984.252, *a.ElevationGainFt, 1e-6)
	require.NotNil(t, a.GroundContactMs)
	assert.InDelta(t, 245.0, *a.GroundContactMs, 1e-9)
	require.NotNil(t, a.AerobicTE)
	assert.InDelta(t, 3.4, *a.AerobicTE, 1e-9)
	assert.Nil(t, a.BodyBatteryDrain)
}

func TestReadFIT_UnsetFieldsStayNil(t *testing.T) {
	session := fit.NewSessionMsg()
	// no start time: the session timestamp dates the activity
	session.Timestamp = time.Date(2026, 2, 18, 6, 0, 0, 0, time.UTC)
	session.Sport = fit.SportCycling
	session.AvgHeartRate = 0

	data := encodeFIT(t, fit.FileTypeActivity, nil, session)

	a, err := activity.ReadFIT(bytes.NewReader(data), "ride.fit")
	require.NoError(t, err)

	assert.Equal(t, day(18), a.Date)
	assert.Equal(t, activity.KindOther, a.Kind)
	assert.False(t, a.IsTrail)
	assert.Nil(t, a.DistanceMi)
	assert.Nil(t, a.DurationMin)
	assert.Nil(t, a.AvgPaceMinPerMi)
	assert.Nil(t, a.AvgHR)
	assert.Nil(t, a.AvgCadence)
	assert.Nil(t, a.ElevationGainFt)
	assert.Nil(t, a.GroundContactMs)
	assert.Nil(t, a.AerobicTE)
}

func TestReadFIT_UTCWithoutLocalTimestamp(t *testing.T) {
	act, session := eveningTrailRun()
	act.LocalTimestamp = fit.NewActivityMsg().LocalTimestamp

	a, err := activity.ReadFIT(bytes.NewReader(encodeFIT(t, fit.FileTypeActivity, act, session)), "run.fit")
	require.NoError(t, err)
	assert.Equal(t, day(23), a.Date)
}

func TestReadFIT_SourceFormatErrors(t *testing.T) {
	noStart := fit.NewSessionMsg()
	noStart.Sport = fit.SportRunning
	noStart.TotalDistance = 500000

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "Garbage", data: []byte("definitely not a FIT file")},
		{name: "NotAnActivity", data: encodeFIT(t, fit.FileTypeWorkout, nil)},
		{name: "NoSession", data: encodeFIT(t, fit.FileTypeActivity, nil)},
		{name: "NoStartTime", data: encodeFIT(t, fit.FileTypeActivity, nil, noStart)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := activity.ReadFIT(bytes.NewReader(tc.data), "bad.fit")
			require.Error(t, err)
			assert.ErrorIs(t, err, table.ErrSourceFormat)
			var sfe *activity.SourceFormatError
			require.ErrorAs(t, err, &sfe)
			assert.Equal(t, "bad.fit", sfe.Source)
		})
	}
}

func TestLoadFIT_MissingFile(t *testing.T) {
	_, err := activity.LoadFIT(filepath.Join(t.TempDir(), "missing.fit"))
	assert.ErrorIs(t, err, table.ErrSourceFormat)
}

func TestLoadFITDir(t *testing.T) {
	dir := t.TempDir()
	act, run := eveningTrailRun()
	ride := fit.NewSessionMsg()
	ride.StartTime = time.Date(2026, 2, 18, 6, 0, 0, 0, time.UTC)
	ride.Sport = fit.SportCycling

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-run.FIT"), encodeFIT(t, fit.FileTypeActivity, act, run), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-ride.fit"), encodeFIT(t, fit.FileTypeActivity, nil, ride), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c-broken.fit"), []byte("junk"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a fit"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.fit"), 0o700))

	acts, err := activity.LoadFITDir(dir)
	require.NoError(t, err)
	require.Len(t, acts, 2, "broken files and non-FIT entries are skipped")
	assert.Equal(t, "a-ride", acts[0].Title)
	assert.Equal(t, "b-run", acts[1].Title)

	_, err = activity.LoadFITDir(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
