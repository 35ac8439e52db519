package timeofday

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, err := Parse("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())

	got, err = Parse("17:00:00")
	require.NoError(t, err)
	assert.Equal(t, "17:00", got.String())

	// trailing garbage must fail outright, not truncate to a valid time
	for _, bad := range []string{
		"", "9:00", "25:00", "12:61", "12-30", "12:30:99", "banana",
		"12:3a", "1:234", "09:00:5x", "0930 ", " 9:30", "09.30", "09:30 0",
	} {
		_, err := Parse(bad)
		assert.Error(t, err, "expected %q to fail", bad)
		assert.ErrorIs(t, err, ErrInvalid)
	}
}

func TestOrderingAndWindows(t *testing.T) {
	nine := MustNew(9, 0)
	noon := MustNew(12, 0)
	one := MustNew(13, 0)

	assert.True(t, nine.Before(noon))
	assert.True(t, one.After(noon))
	assert.True(t, noon.In(noon, one), "window start is inclusive")
	assert.False(t, one.In(noon, one), "window end is exclusive")
	assert.False(t, nine.In(noon, one))
}

func TestAdd(t *testing.T) {
	nine := MustNew(9, 0)
	assert.Equal(t, "09:30", nine.Add(30*time.Minute).String())
	assert.Equal(t, "10:00", nine.Add(time.Hour).String())

	// stepping past midnight saturates so slot loops terminate
	late := MustNew(23, 45)
	end := late.Add(30 * time.Minute)
	assert.False(t, end.Before(MustNew(23, 59)))
	assert.Equal(t, end, end.Add(30*time.Minute))
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(MustNew(8, 5))
	require.NoError(t, err)
	assert.Equal(t, `"08:05"`, string(data))

	var got TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"14:30"`), &got))
	assert.Equal(t, MustNew(14, 30), got)

	assert.Error(t, json.Unmarshal([]byte(`"not-a-time"`), &got))
}

func TestScan(t *testing.T) {
	var got TimeOfDay
	require.NoError(t, got.Scan([]byte("10:30:00")))
	assert.Equal(t, MustNew(10, 30), got)

	require.NoError(t, got.Scan("16:00:00"))
	assert.Equal(t, MustNew(16, 0), got)

	require.NoError(t, got.Scan(time.Date(2000, 1, 1, 7, 45, 0, 0, time.UTC)))
	assert.Equal(t, MustNew(7, 45), got)

	require.NoError(t, got.Scan(nil))
	assert.True(t, got.IsZero())

	assert.Error(t, got.Scan(42))
}

func TestValue(t *testing.T) {
	v, err := MustNew(9, 30).Value()
	require.NoError(t, err)
	assert.Equal(t, "09:30:00", v)
}
