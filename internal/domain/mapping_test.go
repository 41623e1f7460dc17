package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aircheck/testdata/utils"
)

func fullProgram() Program {
	return Program{
		ID:          42,
		StationID:   utils.Ptr("TBS"),
		Name:        "JUNK Mon",
		URL:         "http://example.com/junk",
		Description: "late night talk",
		Information: "every monday 25:00",
		Performers:  []string{"ijuin", "tanaka"},
		Copyright:   "(c) TBS RADIO",
		EpisodeID:   7,
		EpisodeName: "2022/11/27 01:00",
		Datetime:    time.Date(2022, 11, 27, 1, 0, 0, 0, time.UTC),
		Duration:    utils.Ptr(7200),
		ASCIIName:   utils.Ptr("junk"),
		Guests:      []string{"guest1"},
		ImageURL:    utils.Ptr("http://example.com/junk.png"),
		IsVideo:     false,
		RawData:     map[string]any{"access_id": "junk"},
	}
}

func TestProgramRoundTrip(t *testing.T) {
	p := fullProgram()

	got, err := ProgramFromMapping(p.ToMapping(true))
	require.NoError(t, err)

	assert.True(t, p.Equal(got))
}

func TestProgramRoundTripTruncatesToMinute(t *testing.T) {
	p := fullProgram()
	p.Datetime = time.Date(2022, 11, 27, 1, 0, 31, 0, time.UTC)

	got, err := ProgramFromMapping(p.ToMapping(true))
	require.NoError(t, err)

	assert.True(t, got.Datetime.Equal(time.Date(2022, 11, 27, 1, 0, 0, 0, time.UTC)))
}

func TestProgramFromMapping_NativeDatetime(t *testing.T) {
	p := fullProgram()

	got, err := ProgramFromMapping(p.ToMapping(false))
	require.NoError(t, err)

	assert.True(t, p.Equal(got))
	assert.True(t, got.Datetime.Equal(p.Datetime))
}

func TestProgramFromMapping_DiscardsForeignKeys(t *testing.T) {
	m := fullProgram().ToMapping(true)
	m["_id"] = "storage-row-17"

	got, err := ProgramFromMapping(m)
	require.NoError(t, err)
	assert.True(t, fullProgram().Equal(got))
}

func TestProgramFromMapping_RequiredFields(t *testing.T) {
	for _, key := range []string{"id", "name", "episode_id", "datetime"} {
		m := fullProgram().ToMapping(true)
		delete(m, key)

		_, err := ProgramFromMapping(m)
		assert.ErrorIs(t, err, ErrSchemaViolation, key)

		m = fullProgram().ToMapping(true)
		m[key] = nil

		_, err = ProgramFromMapping(m)
		assert.ErrorIs(t, err, ErrSchemaViolation, key)
	}
}

func TestProgramFromMapping_WrongTypes(t *testing.T) {
	m := fullProgram().ToMapping(true)
	m["name"] = 12

	_, err := ProgramFromMapping(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	m = fullProgram().ToMapping(true)
	m["performers"] = "ijuin"

	_, err = ProgramFromMapping(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	m = fullProgram().ToMapping(true)
	m["datetime"] = "definitely not a timestamp"

	_, err = ProgramFromMapping(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestProgramFromMapping_OptionalDefaults(t *testing.T) {
	m := map[string]any{
		"id":         1,
		"name":       "minimal",
		"episode_id": 2,
		"datetime":   "2022-11-27 01:00",
	}

	got, err := ProgramFromMapping(m)
	require.NoError(t, err)

	assert.Nil(t, got.StationID)
	assert.Nil(t, got.Performers)
	assert.Nil(t, got.Duration)
	assert.Nil(t, got.Guests)
	assert.False(t, got.IsVideo)
	assert.Empty(t, got.URL)
}

func TestProgramFromMapping_EmptyListMeansAbsent(t *testing.T) {
	m := fullProgram().ToMapping(true)
	m["performers"] = []any{}
	m["guests"] = nil

	got, err := ProgramFromMapping(m)
	require.NoError(t, err)
	assert.Nil(t, got.Performers)
	assert.Nil(t, got.Guests)
}

func TestProgramToMapping_AllKeysPresent(t *testing.T) {
	m := Program{
		ID:        1,
		Name:      "minimal",
		EpisodeID: 2,
		Datetime:  time.Date(2022, 11, 27, 1, 0, 0, 0, time.UTC),
	}.ToMapping(true)

	keys := []string{
		"id", "station_id", "name", "url", "description", "information",
		"performers", "copyright", "episode_id", "episode_name", "datetime",
		"duration", "ascii_name", "guests", "image_url", "is_video", "raw_data",
	}
	for _, key := range keys {
		_, ok := m[key]
		assert.True(t, ok, key)
	}
	assert.Nil(t, m["station_id"])
	assert.Nil(t, m["duration"])
	assert.Equal(t, "2022-11-27 01:00", m["datetime"])
}

func TestProgramEqualIgnoresRawData(t *testing.T) {
	a := fullProgram()
	b := fullProgram()
	b.RawData = map[string]any{"something": "else"}

	assert.True(t, a.Equal(b))

	b.Name = "other"
	assert.False(t, a.Equal(b))
}

func TestQueryMappingExcludesRawData(t *testing.T) {
	m := fullProgram().QueryMapping()
	_, ok := m["raw_data"]
	assert.False(t, ok)
}

func TestStationRoundTrip(t *testing.T) {
	s := Station{
		ID:         "TBS",
		PlatformID: "radiko.jp",
		Name:       "TBS RADIO",
		ASCIIName:  utils.Ptr("tbs"),
		URL:        utils.Ptr("https://www.tbsradio.jp/"),
		ImageURL:   utils.Ptr("https://example.com/tbs.png"),
	}

	got, err := StationFromMapping(s.ToMapping())
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
}

func TestStationFromMapping_RequiredFields(t *testing.T) {
	m := map[string]any{"id": "TBS", "platform_id": "radiko.jp"}

	_, err := StationFromMapping(m)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}
