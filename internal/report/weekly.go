// Package report builds the operator-facing run summary, the weekly statistics
// table, and the delivery attachment.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/table"
)

// dayLabels in delivery order, Monday first.
var dayLabels = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// DayStats is one day's delivery counts per source. Future days carry no
// counts and render as dashes.
type DayStats struct {
	Label    string
	Date     time.Time
	Registry int
	Gazette  int
	Future   bool
}

// EnrichedReader reads one enriched partition. Satisfied by store.Partitioned.
type EnrichedReader interface {
	ReadEnriched(ctx context.Context, tier harvest.Tier, date string) (*table.Table, error)
}

// Weekly computes delivery-tier statistics for the current week.
type Weekly struct {
	store  EnrichedReader
	clock  harvest.Clock
	logger *zap.Logger
}

// NewWeekly creates a weekly statistics builder.
func NewWeekly(store EnrichedReader, clock harvest.Clock, logger *zap.Logger) *Weekly {
	return &Weekly{store: store, clock: clock, logger: logger}
}

// weekStart returns the Monday anchoring the reported week. On a Monday the
// report covers the previous, complete week.
func weekStart(now time.Time) time.Time {
	// day boundary in the clock's own location, not a UTC floor
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Weekday() == time.Monday {
		return day.AddDate(0, 0, -7)
	}
	offset := int(now.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return day.AddDate(0, 0, -offset)
}

// Stats reads the delivery tier for each day of the reported week. A day that
// fails to read counts as zero; one bad partition must not sink the report.
func (w *Weekly) Stats(ctx context.Context) []DayStats {
	now := w.clock.Now()
	start := weekStart(now)

	stats := make([]DayStats, 0, len(dayLabels))
	for i, label := range dayLabels {
		date := start.AddDate(0, 0, i)
		day := DayStats{Label: label, Date: date}
		if date.After(now) {
			day.Future = true
			stats = append(stats, day)
			continue
		}

		tbl, err := w.store.ReadEnriched(ctx, harvest.TierDelivery, date.Format(harvest.DateLayout))
		if err != nil {
			w.logger.Warn("could not read delivery partition for weekly stats",
				zap.String("date", date.Format(harvest.DateLayout)),
				zap.Error(err))
			stats = append(stats, day)
			continue
		}
		for _, row := range tbl.Rows {
			switch harvest.Source(row["source"]) {
			case harvest.SourceRegistry:
				day.Registry++
			case harvest.SourceGazette:
				day.Gazette++
			}
		}
		stats = append(stats, day)
	}
	return stats
}

// Column widths of the fixed-width weekly table.
const (
	dayWidth      = 35
	gazetteWidth  = 16
	registryWidth = 20
	totalWidth    = 8
)

// FormatWeekly renders the statistics as the fixed-width table embedded in the
// report email body.
func FormatWeekly(stats []DayStats) string {
	if len(stats) == 0 {
		return "No hay datos disponibles para el reporte semanal."
	}

	width := dayWidth + gazetteWidth + registryWidth + totalWidth
	separator := strings.Repeat("═", width)

	var b strings.Builder
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("%-*s%-*s%-*s%-*s\n",
		dayWidth, "Día",
		gazetteWidth, "Diario Oficial",
		registryWidth, "Registro de Empresa",
		totalWidth, "Total"))
	b.WriteString(separator + "\n")

	totalGazette, totalRegistry := 0, 0
	for _, day := range stats {
		label := fmt.Sprintf("%s: %s", day.Label, day.Date.Format("02-01-'06"))
		gazette, registry, total := "-", "-", "-"
		if !day.Future {
			gazette = fmt.Sprintf("%d", day.Gazette)
			registry = fmt.Sprintf("%d", day.Registry)
			total = fmt.Sprintf("%d", day.Gazette+day.Registry)
			totalGazette += day.Gazette
			totalRegistry += day.Registry
		}
		b.WriteString(fmt.Sprintf("%-*s%-*s%-*s%-*s\n",
			dayWidth, label,
			gazetteWidth, gazette,
			registryWidth, registry,
			totalWidth, total))
	}

	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("%-*s%-*d%-*d%-*d",
		dayWidth, "TOTAL SEMANAL",
		gazetteWidth, totalGazette,
		registryWidth, totalRegistry,
		totalWidth, totalGazette+totalRegistry))
	return b.String()
}
