package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// tabularState tracks progress through the flat-table extraction machine.
type tabularState int

const (
	tabularLoaded tabularState = iota
	tabularExpanded
	tabularParsed
	tabularValidated
)

const registryColumnCount = 6

// TabularConfig parameterizes the registry table extractor.
type TabularConfig struct {
	// LengthSelect is the page-size control revealing all rows.
	LengthSelect string
	// TableSelector locates the results table.
	TableSelector string
	// SummarySelector locates the human-readable total summary.
	SummarySelector string
}

// DefaultTabularConfig matches the registry's DataTables markup.
func DefaultTabularConfig() TabularConfig {
	return TabularConfig{
		LengthSelect:    `select[name="tblSociedades_length"]`,
		TableSelector:   `#tblSociedades`,
		SummarySelector: `#tblSociedades_info`,
	}
}

// TabularExtractor reads the registry's flat results table. The page defaults
// to a partial view, so the machine must expand it before reading: extracting
// from the Loaded state silently truncates results.
type TabularExtractor struct {
	cfg     TabularConfig
	dates   Dates
	logger  *zap.Logger
	state   tabularState
	skipped int
}

// NewTabular constructs a TabularExtractor for one run.
func NewTabular(cfg TabularConfig, dates Dates, logger *zap.Logger) *TabularExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TabularExtractor{cfg: cfg, dates: dates, logger: logger}
}

// Source identifies the registry source.
func (e *TabularExtractor) Source() harvest.Source {
	return harvest.SourceRegistry
}

// Skipped is always zero for the tabular source: a malformed row is a fatal
// structural signal here, never a per-row skip.
func (e *TabularExtractor) Skipped() int {
	return e.skipped
}

// Extract walks Loaded -> Expanded -> Parsed.
func (e *TabularExtractor) Extract(ctx context.Context, page harvest.Page) ([]harvest.NormalizedRecord, error) {
	e.state = tabularLoaded

	if err := page.SelectValue(ctx, e.cfg.LengthSelect, "-1"); err != nil {
		return nil, fmt.Errorf("expand results table: %w", err)
	}
	e.state = tabularExpanded

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	tbody := doc.Find(e.cfg.TableSelector).Find("tbody")
	if tbody.Length() == 0 {
		return nil, &harvest.SchemaDriftError{
			Source: e.Source(),
			Detail: fmt.Sprintf("results table %q not found", e.cfg.TableSelector),
		}
	}

	var (
		records  []harvest.NormalizedRecord
		rowErr   error
		location = page.Location()
	)
	tbody.Find(`tr[role="row"]`).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		record, err := e.parseRow(row, location)
		if err != nil {
			rowErr = err
			return false
		}
		records = append(records, record)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	e.state = tabularParsed
	e.logger.Info("registry rows parsed",
		zap.Int("rows", len(records)),
		zap.String("url", location),
	)
	return records, nil
}

func (e *TabularExtractor) parseRow(row *goquery.Selection, location string) (harvest.NormalizedRecord, error) {
	cells := row.Find("td")
	cols := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		cols = append(cols, strings.TrimSpace(cell.Text()))
	})

	// A deviating arity means the page layout changed underneath us. Fail the
	// batch rather than skip: partial extraction here is silent data loss.
	if len(cols) != registryColumnCount {
		return harvest.NormalizedRecord{}, &harvest.SchemaDriftError{
			Source:   e.Source(),
			Detail:   fmt.Sprintf("row %q", strings.Join(cols, "|")),
			Expected: registryColumnCount,
			Got:      len(cols),
		}
	}

	eventDate, err := time.Parse("02-01-2006", cols[0])
	if err != nil {
		return harvest.NormalizedRecord{}, &harvest.SchemaDriftError{
			Source: e.Source(),
			Detail: fmt.Sprintf("unparseable event date %q", cols[0]),
		}
	}

	record := harvest.NormalizedRecord{
		Source:           e.Source(),
		DisplayName:      cols[4],
		DocumentURL:      location,
		ActionType:       cols[1],
		AttentionNumber:  cols[3],
		VerificationCode: cols[5],
		EventDate:        eventDate,
		IngestionDate:    e.dates.IngestionDate,
	}
	if body, check, err := SplitIdentifier(cols[2]); err == nil {
		record.Identifier = body
		record.IdentifierCheckDigit = check
	} else {
		// Identifier is nullable for malformed rows; the rest of the record
		// still carries value downstream.
		e.logger.Warn("registry identifier not normalized",
			zap.String("raw", cols[2]),
			zap.Error(err),
		)
	}
	return record, nil
}

// Validate walks Parsed -> Validated by comparing the page's self-reported
// total against the extracted count.
func (e *TabularExtractor) Validate(ctx context.Context, page harvest.Page, records []harvest.NormalizedRecord) error {
	if e.state != tabularParsed {
		return errors.New("validate called before a successful extract")
	}

	summary, err := page.Text(ctx, e.cfg.SummarySelector)
	if err != nil {
		return fmt.Errorf("read table summary: %w", err)
	}
	expected, err := ParseExpectedTotal(summary)
	if err != nil {
		return fmt.Errorf("parse table summary: %w", err)
	}
	if expected != len(records) {
		return &harvest.ValidationError{
			Source:    e.Source(),
			Expected:  expected,
			Extracted: len(records),
		}
	}

	e.state = tabularValidated
	return nil
}
