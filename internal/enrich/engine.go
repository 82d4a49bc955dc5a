// Package enrich joins the day's raw records against the company and staff
// reference tables.
package enrich

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/refdata"
	"github.com/vigia-data/registry-harvester/internal/table"
)

// Stats summarizes one enrichment run.
type Stats struct {
	Matched           int
	DuplicatesRemoved int
}

// Engine enriches raw records. Every raw record survives enrichment: records
// without a reference match come out with null reference columns, never
// dropped. The caller verifies len(out) == len(raw) afterwards.
type Engine struct {
	logger *zap.Logger
}

// New creates an enrichment engine.
func New(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// NormalizeKey coerces a join key to its canonical string form. Identifiers
// arrive zero-padded from some warehouse exports and bare from the scrapers;
// both sides of every join go through this same function.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	stripped := strings.TrimLeft(key, "0")
	if stripped == "" {
		return "0"
	}
	return stripped
}

// reference is one combined company+staff row keyed by company identifier.
type reference struct {
	segment          string
	platform         string
	accountOwnerCode string
	staffID          string
	staffName        string
	staffRole        string
	staffEmail       string
	staffUnit        string
}

// Enrich joins raw onto the reference tables and returns one row per raw
// record, anchored by origin sequence.
func (e *Engine) Enrich(raw []harvest.NormalizedRecord, refs refdata.Tables) ([]harvest.EnrichedRecord, Stats) {
	companies := groupCompanies(refs.Companies)
	staff := indexStaff(refs.Staff)

	var out []harvest.EnrichedRecord
	stats := Stats{}
	seen := make(map[int]bool, len(raw))

	for seq, rec := range raw {
		matches := companies[NormalizeKey(rec.Identifier)]
		if len(matches) == 0 {
			out = append(out, harvest.EnrichedRecord{NormalizedRecord: rec, OriginSequence: seq})
			continue
		}
		stats.Matched++
		for _, company := range matches {
			if seen[seq] {
				// residual reference duplicate, keep the first join result
				stats.DuplicatesRemoved++
				continue
			}
			seen[seq] = true

			enriched := harvest.EnrichedRecord{
				NormalizedRecord: rec,
				OriginSequence:   seq,
				Segment:          company[refdata.ColSegment],
				Platform:         company[refdata.ColPlatform],
				AccountOwnerCode: company[refdata.ColAccountOwnerCode],
			}
			if s, ok := staff[NormalizeKey(company[refdata.ColAccountOwnerCode])]; ok {
				enriched.StaffID = s[refdata.ColStaffID]
				enriched.StaffName = s[refdata.ColStaffName]
				enriched.StaffRole = s[refdata.ColStaffRole]
				enriched.StaffEmail = s[refdata.ColStaffEmail]
				enriched.StaffUnit = s[refdata.ColStaffUnit]
			}
			out = append(out, enriched)
		}
	}

	if stats.DuplicatesRemoved > 0 {
		e.logger.Warn("removed duplicate join results",
			zap.Int("removed", stats.DuplicatesRemoved))
	}
	e.logger.Info("enrichment complete",
		zap.Int("raw", len(raw)),
		zap.Int("matched", stats.Matched),
		zap.Int("out", len(out)))
	return out, stats
}

// groupCompanies buckets company rows by normalized identifier, keeping only
// the rows at the most recent process date per identifier. Historical
// duplicates in the company master would otherwise fan the join out.
func groupCompanies(companies *table.Table) map[string][]table.Row {
	byKey := make(map[string][]table.Row)
	if companies == nil {
		return byKey
	}
	for _, row := range companies.Rows {
		key := NormalizeKey(row[refdata.ColIdentifier])
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], row)
	}
	for key, rows := range byKey {
		// process_date is ISO formatted, lexicographic order is date order
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i][refdata.ColProcessDate] > rows[j][refdata.ColProcessDate]
		})
		latest := rows[0][refdata.ColProcessDate]
		end := len(rows)
		for i, row := range rows {
			if row[refdata.ColProcessDate] != latest {
				end = i
				break
			}
		}
		byKey[key] = rows[:end]
	}
	return byKey
}

// indexStaff maps normalized staff identifier to the most recently loaded
// staff row.
func indexStaff(staff *table.Table) map[string]table.Row {
	byKey := make(map[string]table.Row)
	if staff == nil {
		return byKey
	}
	for _, row := range staff.Rows {
		key := NormalizeKey(row[refdata.ColStaffID])
		if key == "" {
			continue
		}
		current, ok := byKey[key]
		if !ok || row[refdata.ColLoadDate] > current[refdata.ColLoadDate] {
			byKey[key] = row
		}
	}
	return byKey
}
