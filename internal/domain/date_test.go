package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+10", 10*60*60)
	// 23:30 UTC on the 1st is already the 2nd in UTC+10.
	instant := time.Date(2025, time.March, 1, 23, 30, 0, 0, time.UTC).In(loc)

	assert.Equal(t, "2025-03-02", DateOf(instant).String())
	assert.Equal(t, "2025-03-01", DateOf(instant.UTC()).String())
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDate(2024, time.February, 29)))

	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ParseDate("2023-02-29")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDateComparison(t *testing.T) {
	t.Parallel()

	a := NewDate(2025, time.December, 31)
	b := a.AddDays(1)

	assert.Equal(t, "2026-01-01", b.String())
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.True(t, a.Equal(NewDate(2025, time.December, 31)))
	assert.True(t, Date{}.IsZero())
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Due  *Date `json:"due"`
		When Date  `json:"when"`
	}

	data, err := json.Marshal(payload{When: NewDate(2025, time.July, 4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":null,"when":"2025-07-04"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-01-02","when":"2025-01-03"}`), &p))
	require.NotNil(t, p.Due)
	assert.Equal(t, "2025-01-02", p.Due.String())
	assert.Equal(t, "2025-01-03", p.When.String())

	err = json.Unmarshal([]byte(`{"due":"tomorrow"}`), &p)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDateScan(t *testing.T) {
	t.Parallel()

	var d Date
	require.NoError(t, d.Scan(time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-05-06", d.String())

	require.NoError(t, d.Scan("2025-05-07"))
	assert.Equal(t, "2025-05-07", d.String())

	require.NoError(t, d.Scan([]byte("2025-05-08T00:00:00Z")))
	assert.Equal(t, "2025-05-08", d.String())

	assert.Error(t, d.Scan(nil))
	assert.Error(t, d.Scan(42))

	v, err := NewDate(2025, time.May, 9).Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-05-09", v)
}
