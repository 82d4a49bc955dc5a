// Package extract converts loaded source pages into normalized records via
// per-source state machines.
package extract

import (
	"context"
	"time"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// Extractor turns a loaded page into a batch of normalized records.
type Extractor interface {
	Source() harvest.Source
	// Extract reads the already-loaded page. Structural problems fail the
	// whole batch; per-row problems are skipped and counted.
	Extract(ctx context.Context, page harvest.Page) ([]harvest.NormalizedRecord, error)
	// Validate checks the extracted batch against what the page claims to
	// hold. Callers must not persist a batch that fails validation.
	Validate(ctx context.Context, page harvest.Page, records []harvest.NormalizedRecord) error
	// Skipped reports how many rows the last Extract call dropped.
	Skipped() int
}

// Dates fixes the business dates for one run. EventDate is "yesterday"
// relative to the harvest; IngestionDate keys the storage partition.
type Dates struct {
	EventDate     time.Time
	IngestionDate time.Time
}

// DatesFor derives the run dates from the harvest clock. The day boundary is
// taken in the clock's own location; a UTC floor would shift early-morning
// runs in western timezones onto the previous calendar day.
func DatesFor(now time.Time) Dates {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Dates{
		EventDate:     day.AddDate(0, 0, -1),
		IngestionDate: day,
	}
}
