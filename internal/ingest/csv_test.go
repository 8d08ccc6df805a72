package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 5, 10, 17, 5, 0, 0, time.UTC)

	for _, s := range []string{
		"2024-05-10T17:05:00Z",
		"2024-05-10 17:05:00",
		"2024-05-10 17:05:00.000",
		"2024-05-10T17:05:00",
		"2024-05-10T19:05:00+02:00",
		" 2024-05-10 17:05 ",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 412.5, ParseValue("412.5"))
	assert.Equal(t, -3.0, ParseValue(" -3 "))
	assert.True(t, math.IsNaN(ParseValue("")))
	assert.True(t, math.IsNaN(ParseValue("n/a")))
	assert.True(t, math.IsNaN(ParseValue("-1e31")))
	assert.True(t, math.IsNaN(ParseValue("-1.0E+31")))
	assert.True(t, math.IsNaN(ParseValue("NaN")))
}

func TestReadSeries(t *testing.T) {
	input := `Time,proton_speed,proton_density
2024-05-10 00:00:00,400,5.0
2024-05-10 00:01:00,-1e31,5.5
not-a-time,410,6.0
2024-05-10 00:02:00,420,
2024-05-10 00:03:00,430
`
	samples, report, err := ReadSeries(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 1, report.SkippedRows)
	assert.Equal(t, []string{"proton_speed", "proton_density"}, report.Parameters)

	assert.Equal(t, 400.0, samples[0].Values["proton_speed"])
	assert.Equal(t, 5.0, samples[0].Values["proton_density"])
	assert.True(t, math.IsNaN(samples[1].Values["proton_speed"]))
	assert.Equal(t, 5.5, samples[1].Values["proton_density"])
	assert.True(t, math.IsNaN(samples[2].Values["proton_density"]))
	assert.True(t, math.IsNaN(samples[3].Values["proton_density"]), "short row pads with missing")
	assert.Equal(t, time.Date(2024, 5, 10, 0, 3, 0, 0, time.UTC), samples[3].Time)
}

func TestReadSeries_Columns(t *testing.T) {
	input := "time,a,b,c\n2024-01-01T00:00:00Z,1,2,3\n"

	samples, report, err := ReadSeries(strings.NewReader(input), WithColumns("a", "c"))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []string{"a", "c"}, report.Parameters)
	assert.Len(t, samples[0].Values, 2)
	assert.Equal(t, 3.0, samples[0].Values["c"])
}

func TestReadSeries_MissingTimeColumn(t *testing.T) {
	_, _, err := ReadSeries(strings.NewReader("Epoch,a\n2024-01-01,1\n"))
	assert.ErrorIs(t, err, ErrMissingHeader)

	samples, _, err := ReadSeries(strings.NewReader("Epoch,a\n2024-01-01,1\n"), WithTimeColumn("Epoch"))
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestReadCatalog(t *testing.T) {
	input := `CME_Number,Launch_Time,Speed,Halo_Flag,Estimated_Arrival,Expected_Start,Expected_End
1,2024-05-08 05:36:00,1200,IV,2024-05-10 12:00:00,2024-05-10 00:00:00,2024-05-11 00:00:00
2,2024-05-09 09:24:00,,III,,2024-05-11 06:00:00,2024-05-12 06:00:00
3,2024-05-09 10:00:00,800,II,,bad,2024-05-12 06:00:00
`
	windows, err := ReadCatalog(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, "1", windows[0].ID)
	assert.Equal(t, "IV", windows[0].HaloFlag)
	assert.Equal(t, 1200.0, windows[0].Speed)
	assert.Equal(t, time.Date(2024, 5, 8, 5, 36, 0, 0, time.UTC), windows[0].LaunchTime)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), windows[0].ExpectedStart)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), windows[0].ExpectedEnd)

	assert.Equal(t, "2", windows[1].ID)
	assert.True(t, math.IsNaN(windows[1].Speed))
}

func TestReadCatalog_CaseInsensitive(t *testing.T) {
	input := "ID,EXPECTED_START,expected_end\nA,2024-01-01T00:00:00Z,2024-01-02T00:00:00Z\n"

	windows, err := ReadCatalog(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "A", windows[0].ID)
	assert.True(t, windows[0].LaunchTime.IsZero())
}

func TestReadCatalog_MissingColumn(t *testing.T) {
	_, err := ReadCatalog(strings.NewReader("id,Expected_Start\n1,2024-01-01\n"))
	assert.ErrorIs(t, err, ErrMissingHeader)
}
