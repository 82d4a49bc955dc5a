package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/table"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeReader struct {
	tables map[string]*table.Table
}

func (r *fakeReader) ReadEnriched(_ context.Context, _ harvest.Tier, date string) (*table.Table, error) {
	if tbl, ok := r.tables[date]; ok {
		return tbl, nil
	}
	return table.New(), nil
}

func deliveryTable(registry, gazette int) *table.Table {
	tbl := table.New("source", "identifier")
	for i := 0; i < registry; i++ {
		tbl.Append(table.Row{"source": "registry", "identifier": "1"})
	}
	for i := 0; i < gazette; i++ {
		tbl.Append(table.Row{"source": "gazette", "identifier": "2"})
	}
	return tbl
}

func TestWeekStartMidweek(t *testing.T) {
	t.Parallel()

	// Wednesday anchors to the same week's Monday
	wednesday := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), weekStart(wednesday))
}

func TestWeekStartMondayShowsPreviousWeek(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), weekStart(monday))
}

func TestWeekStartKeepsClockCalendarDay(t *testing.T) {
	t.Parallel()

	// 09:00 Wednesday in Santiago is 13:00 UTC; the anchor must stay the
	// local week's Monday, not shift through a UTC day floor
	santiago := time.FixedZone("CLT", -4*3600)
	wednesday := time.Date(2026, 8, 26, 9, 0, 0, 0, santiago)
	require.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, santiago), weekStart(wednesday))
}

func TestStatsCountsPerSourceAndMarksFutureDays(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{tables: map[string]*table.Table{
		"2026-08-24": deliveryTable(3, 2),
		"2026-08-25": deliveryTable(1, 0),
	}}
	// Wednesday morning: Mon and Tue have data, Wed counts zero, Thu..Sun future
	clock := fixedClock{now: time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)}

	stats := NewWeekly(reader, clock, zap.NewNop()).Stats(context.Background())
	require.Len(t, stats, 7)

	require.Equal(t, "Lunes", stats[0].Label)
	require.Equal(t, 3, stats[0].Registry)
	require.Equal(t, 2, stats[0].Gazette)
	require.False(t, stats[0].Future)

	require.Equal(t, 1, stats[1].Registry)
	require.False(t, stats[2].Future)
	for _, day := range stats[3:] {
		require.True(t, day.Future, "day %s", day.Label)
	}
}

func TestFormatWeekly(t *testing.T) {
	t.Parallel()

	stats := []DayStats{
		{Label: "Lunes", Date: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), Registry: 3, Gazette: 2},
		{Label: "Martes", Date: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), Future: true},
	}

	out := FormatWeekly(stats)
	require.Contains(t, out, "Diario Oficial")
	require.Contains(t, out, "Registro de Empresa")
	require.Contains(t, out, "Lunes: 24-08-'26")
	require.Contains(t, out, "TOTAL SEMANAL")

	lines := strings.Split(out, "\n")
	// future day renders dashes in every count column
	var tuesday string
	for _, line := range lines {
		if strings.HasPrefix(line, "Martes") {
			tuesday = line
		}
	}
	require.NotEmpty(t, tuesday)
	rest := strings.TrimPrefix(tuesday, "Martes: 25-08-'26")
	require.Equal(t, []string{"-", "-", "-"}, strings.Fields(rest))

	// totals count only concrete days
	require.Contains(t, lines[len(lines)-1], "TOTAL SEMANAL")
	require.Contains(t, lines[len(lines)-1], "5")
}

func TestFormatWeeklyEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "No hay datos disponibles para el reporte semanal.", FormatWeekly(nil))
}

func TestBuildAttachmentFromTable(t *testing.T) {
	t.Parallel()

	data, err := BuildAttachment(harvest.Attachment{Table: &harvest.TableInput{
		Columns: []string{"identifier", "display_name"},
		Rows:    [][]string{{"76123456", "SOCIEDAD UNO"}},
	}})
	require.NoError(t, err)
	require.Equal(t, "identifier,display_name\n76123456,SOCIEDAD UNO\n", string(data))
}

func TestBuildAttachmentFromRecords(t *testing.T) {
	t.Parallel()

	rec := harvest.EnrichedRecord{
		NormalizedRecord: harvest.NormalizedRecord{
			Source:        harvest.SourceGazette,
			Identifier:    "76123456",
			DisplayName:   "SOCIEDAD UNO",
			EventDate:     time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
			IngestionDate: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		},
		Segment: "PYME",
	}

	data, err := BuildAttachment(harvest.Attachment{Records: &harvest.RecordListInput{
		Records: []harvest.EnrichedRecord{rec},
	}})
	require.NoError(t, err)
	require.Contains(t, string(data), "source,identifier")
	require.Contains(t, string(data), "gazette,76123456")
}

func TestBuildAttachmentEmptyUnion(t *testing.T) {
	t.Parallel()

	_, err := BuildAttachment(harvest.Attachment{})
	require.ErrorContains(t, err, "no content")
}

func TestSummaryMentionsCountsAndAlarms(t *testing.T) {
	t.Parallel()

	status := harvest.RunStatus{
		RunID:       "run-1",
		RunDate:     "2026-08-30",
		Extracted:   10,
		Transformed: 10,
		CountsMatch: true,
		Sources: []harvest.SourceStatus{
			{Source: harvest.SourceRegistry, Extracted: 7},
			{Source: harvest.SourceGazette, Extracted: 3, SkippedRows: 1},
		},
		Alarms: []string{"reconciliation mismatch: raw 10 rows, enriched 9 rows"},
	}

	body := Summary(status, "WEEKLY TABLE")
	require.Contains(t, body, "extracted:10 transformed:10 counts_match:true")
	require.Contains(t, body, "registry: 7 extraídos")
	require.Contains(t, body, "1 filas omitidas")
	require.Contains(t, body, "reconciliation mismatch")
	require.Contains(t, body, "WEEKLY TABLE")
}

func TestAttachmentName(t *testing.T) {
	t.Parallel()

	name := AttachmentName("reporte_sociedades", harvest.RunStatus{RunDate: "2026-08-30"})
	require.Equal(t, "reporte_sociedades_2026-08-30.csv", name)
}
