package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// ContextualConfig parameterizes the gazette extractor.
type ContextualConfig struct {
	// EditionLink is the link on the intermediate edition-selection page.
	EditionLink string
	// SectionLink reveals the company/cooperative section.
	SectionLink string
	// NoResults marks a legitimately empty edition.
	NoResults string
	// HeadingCell identifies the label cell of a heading row.
	HeadingCell string
	// ContentClass marks content rows.
	ContentClass string
}

// DefaultContextualConfig matches the gazette's markup.
func DefaultContextualConfig() ContextualConfig {
	return ContextualConfig{
		EditionLink:  `a[href*="index.php?date="]`,
		SectionLink:  `a[href*="empresas_cooperativas.php"]`,
		NoResults:    `p.nofound`,
		HeadingCell:  `td.title3`,
		ContentClass: "content",
	}
}

// ContextualExtractor reads the gazette table, where heading rows set a
// running action-type context and content rows are parsed under it. The
// source has no reliable self-reported total, so extraction is partial-page
// tolerant: one bad content row is skipped, not fatal.
type ContextualExtractor struct {
	cfg     ContextualConfig
	dates   Dates
	logger  *zap.Logger
	skipped int
}

// NewContextual constructs a ContextualExtractor for one run.
func NewContextual(cfg ContextualConfig, dates Dates, logger *zap.Logger) *ContextualExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextualExtractor{cfg: cfg, dates: dates, logger: logger}
}

// Source identifies the gazette source.
func (e *ContextualExtractor) Source() harvest.Source {
	return harvest.SourceGazette
}

// Skipped reports rows dropped by the last Extract call.
func (e *ContextualExtractor) Skipped() int {
	return e.skipped
}

// Extract clicks through the edition selection if present, reveals the
// section, and walks the interleaved heading/content rows.
func (e *ContextualExtractor) Extract(ctx context.Context, page harvest.Page) ([]harvest.NormalizedRecord, error) {
	e.skipped = 0

	if strings.Contains(page.Location(), "select_edition") {
		if err := page.Click(ctx, e.cfg.EditionLink); err != nil {
			return nil, fmt.Errorf("select edition: %w", err)
		}
	}
	if err := page.Click(ctx, e.cfg.SectionLink); err != nil {
		return nil, fmt.Errorf("open section: %w", err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	// Absence of content after the click is a legitimate empty edition, not
	// an error.
	if no := doc.Find(e.cfg.NoResults); no.Length() > 0 {
		e.logger.Info("no publications for this edition",
			zap.String("url", page.Location()),
			zap.String("notice", strings.TrimSpace(no.First().Text())),
		)
		return nil, nil
	}

	tbody := doc.Find("tbody")
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("no publication table at %s", page.Location())
	}

	var (
		records       []harvest.NormalizedRecord
		currentAction string
		tally         = map[string]int{}
	)
	tbody.First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		if e.isHeading(row) {
			currentAction = strings.TrimSpace(row.Find(e.cfg.HeadingCell).First().Text())
			return
		}
		if !row.HasClass(e.cfg.ContentClass) {
			return
		}
		if currentAction == "" {
			// A content row before any heading cannot be attributed to an
			// action type. Skip with a warning.
			e.skipped++
			e.logger.Warn("content row before any heading row, skipping",
				zap.String("row", snippet(row.Text())),
			)
			return
		}
		record, err := e.parseContentRow(row, currentAction)
		if err != nil {
			e.skipped++
			e.logger.Warn("content row skipped",
				zap.String("action_type", currentAction),
				zap.String("row", snippet(row.Text())),
				zap.Error(err),
			)
			return
		}
		records = append(records, record)
		tally[currentAction]++
	})

	for action, count := range tally {
		e.logger.Info("gazette action tally",
			zap.String("action_type", action),
			zap.Int("records", count),
		)
	}
	e.logger.Info("gazette rows parsed",
		zap.Int("rows", len(records)),
		zap.Int("skipped", e.skipped),
		zap.String("url", page.Location()),
	)
	return records, nil
}

// isHeading reports whether the row is a heading row: no marker class, but a
// label cell present.
func (e *ContextualExtractor) isHeading(row *goquery.Selection) bool {
	if _, hasClass := row.Attr("class"); hasClass {
		return false
	}
	return row.Find(e.cfg.HeadingCell).Length() > 0
}

func (e *ContextualExtractor) parseContentRow(row *goquery.Selection, actionType string) (harvest.NormalizedRecord, error) {
	combined := strings.TrimSpace(row.Find("td").First().Text())
	name, rawID, err := SplitNameAndIdentifier(combined)
	if err != nil {
		return harvest.NormalizedRecord{}, err
	}
	body, check, err := SplitIdentifier(rawID)
	if err != nil {
		return harvest.NormalizedRecord{}, err
	}

	link := row.Find("a").First()
	if link.Length() == 0 {
		return harvest.NormalizedRecord{}, fmt.Errorf("content row has no document link")
	}
	code, err := ParseVerificationCode(link.Text())
	if err != nil {
		return harvest.NormalizedRecord{}, err
	}
	documentURL, _ := link.Attr("href")

	return harvest.NormalizedRecord{
		Source:               e.Source(),
		Identifier:           body,
		IdentifierCheckDigit: check,
		DisplayName:          name,
		DocumentURL:          documentURL,
		ActionType:           actionType,
		VerificationCode:     code,
		EventDate:            e.dates.EventDate,
		IngestionDate:        e.dates.IngestionDate,
	}, nil
}

// Validate always passes: the gazette publishes no total to check against.
func (e *ContextualExtractor) Validate(context.Context, harvest.Page, []harvest.NormalizedRecord) error {
	return nil
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
