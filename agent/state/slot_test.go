package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsDomainValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name Name
		raw  any
		want any
	}{
		{CardLast4, "1234", "1234"},
		{AccountID, "SB-001", "SB-001"},
		{AccountID, "ab-123", "ab-123"},
		{Limit, float64(10), float64(10)},
		{MonthlyIncome, 5000.5, 5000.5},
		{ExistingEMI, float64(0), float64(0)},
		{TenureMonths, 60, float64(60)},
		{Confirmed, true, true},
		{TenureMonths, json.Number("360"), float64(360)},
	}
	for _, tc := range cases {
		v, err := Parse(tc.name, tc.raw)
		require.NoError(t, err, "slot %s", tc.name)
		assert.Equal(t, tc.want, v.Any(), "slot %s", tc.name)
	}
}

func TestParseRejectsOutOfDomain(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name Name
		raw  any
	}{
		{CardLast4, "123"},
		{CardLast4, 1234.0},
		{AccountID, "SB001"},
		{AccountID, "S1-001"},
		{Limit, float64(0)},
		{Limit, float64(11)},
		{Limit, 2.5},
		{MonthlyIncome, float64(0)},
		{ExistingEMI, float64(-1)},
		{TenureMonths, float64(5)},
		{TenureMonths, float64(361)},
		{Confirmed, "yes"},
		{IdempotencyKey, "  "},
	}
	for _, tc := range cases {
		_, err := Parse(tc.name, tc.raw)
		assert.ErrorIs(t, err, ErrSlotDomain, "slot %s raw %v", tc.name, tc.raw)
	}
}

func TestParseRejectsUnknownSlot(t *testing.T) {
	t.Parallel()

	_, err := Parse(Name("pin"), "1234")
	require.ErrorIs(t, err, ErrUnknownSlot)
	assert.False(t, Known(Name("pin")))
	assert.True(t, Known(ExistingEMI))
}

func TestValueJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(map[string]Value{
		"a": String("x"),
		"b": Number(5),
		"c": Bool(true),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":5,"c":true}`, string(raw))
}
