package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDatesFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	dates := DatesFor(now)
	require.Equal(t, "2026-08-30", dates.IngestionDate.Format("2006-01-02"))
	require.Equal(t, "2026-08-29", dates.EventDate.Format("2006-01-02"))
}

func TestDatesForKeepsClockCalendarDay(t *testing.T) {
	t.Parallel()

	// 09:00 in Santiago is 13:00 UTC; the run day must stay the local one
	santiago := time.FixedZone("CLT", -4*3600)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, santiago)
	dates := DatesFor(now)
	require.Equal(t, "2026-08-30", dates.IngestionDate.Format("2006-01-02"))
	require.Equal(t, "2026-08-29", dates.EventDate.Format("2006-01-02"))
	require.Equal(t, santiago, dates.IngestionDate.Location())
}
