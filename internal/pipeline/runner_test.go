package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/enrich"
	"github.com/vigia-data/registry-harvester/internal/harvest"
	notifymem "github.com/vigia-data/registry-harvester/internal/notify/memory"
	"github.com/vigia-data/registry-harvester/internal/refdata"
	"github.com/vigia-data/registry-harvester/internal/rules"
	"github.com/vigia-data/registry-harvester/internal/store"
	storemem "github.com/vigia-data/registry-harvester/internal/store/memory"
	"github.com/vigia-data/registry-harvester/internal/table"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sequenceIDs struct{ n int }

func (s *sequenceIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%04d", s.n), nil
}

type fakePage struct{}

func (fakePage) Location() string                                  { return "https://example.cl" }
func (fakePage) HTML(context.Context) (string, error)              { return "", nil }
func (fakePage) Text(context.Context, string) (string, error)      { return "", nil }
func (fakePage) Click(context.Context, string) error               { return nil }
func (fakePage) SelectValue(context.Context, string, string) error { return nil }

type fakeBrowser struct {
	closed bool
	navErr error
}

func (b *fakeBrowser) Navigate(context.Context, string) (harvest.Page, error) {
	if b.navErr != nil {
		return nil, b.navErr
	}
	return fakePage{}, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakeExtractor struct {
	source     harvest.Source
	records    []harvest.NormalizedRecord
	extractErr error
	validErr   error
	skipped    int
}

func (e *fakeExtractor) Source() harvest.Source { return e.source }

func (e *fakeExtractor) Extract(context.Context, harvest.Page) ([]harvest.NormalizedRecord, error) {
	if e.extractErr != nil {
		return nil, e.extractErr
	}
	return e.records, nil
}

func (e *fakeExtractor) Validate(context.Context, harvest.Page, []harvest.NormalizedRecord) error {
	return e.validErr
}

func (e *fakeExtractor) Skipped() int { return e.skipped }

type fakeRefs struct {
	tables refdata.Tables
	err    error
}

func (f *fakeRefs) Fetch(context.Context) (refdata.Tables, error) {
	if f.err != nil {
		return refdata.Tables{}, f.err
	}
	return f.tables, nil
}

type droppingEnricher struct{}

func (droppingEnricher) Enrich(raw []harvest.NormalizedRecord, _ refdata.Tables) ([]harvest.EnrichedRecord, enrich.Stats) {
	out := make([]harvest.EnrichedRecord, 0, len(raw))
	for i, rec := range raw[:len(raw)-1] {
		out = append(out, harvest.EnrichedRecord{NormalizedRecord: rec, OriginSequence: i})
	}
	return out, enrich.Stats{}
}

type fakeLedger struct {
	recorded []harvest.RunStatus
	err      error
}

func (l *fakeLedger) Record(_ context.Context, status harvest.RunStatus) error {
	if l.err != nil {
		return l.err
	}
	l.recorded = append(l.recorded, status)
	return nil
}

func record(source harvest.Source, identifier string) harvest.NormalizedRecord {
	return harvest.NormalizedRecord{
		Source:        source,
		Identifier:    identifier,
		DisplayName:   "SOCIEDAD " + identifier,
		ActionType:    "CONSTITUCION",
		EventDate:     time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		IngestionDate: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	}
}

type testHarness struct {
	runner    *Runner
	objects   *storemem.ObjectStore
	store     *store.Partitioned
	notifier  *notifymem.Notifier
	publisher *notifymem.Publisher
	ledger    *fakeLedger
}

func newHarness(t *testing.T, opts func(*Options)) *testHarness {
	t.Helper()

	logger := zap.NewNop()
	objects := storemem.New()
	partitioned := store.NewPartitioned(objects, &sequenceIDs{}, "harvester", logger)
	notifier := notifymem.NewNotifier()
	publisher := notifymem.NewPublisher()
	ledger := &fakeLedger{}

	options := Options{
		Jobs: []SourceJob{
			{
				Source: harvest.SourceRegistry,
				URL:    "https://registry.example.cl",
				NewBrowser: func(context.Context) (harvest.Browser, error) {
					return &fakeBrowser{}, nil
				},
				Extractor: &fakeExtractor{
					source: harvest.SourceRegistry,
					records: []harvest.NormalizedRecord{
						record(harvest.SourceRegistry, "76123456"),
						record(harvest.SourceRegistry, "77654321"),
					},
				},
			},
			{
				Source: harvest.SourceGazette,
				URL:    "https://gazette.example.cl",
				NewBrowser: func(context.Context) (harvest.Browser, error) {
					return &fakeBrowser{}, nil
				},
				Extractor: &fakeExtractor{
					source:  harvest.SourceGazette,
					records: []harvest.NormalizedRecord{record(harvest.SourceGazette, "90111222")},
					skipped: 1,
				},
			},
		},
		Store:          partitioned,
		Refs:           &fakeRefs{tables: emptyRefs()},
		Enricher:       enrich.New(logger),
		ProcessedRules: rules.New(ProcessedChain(), logger),
		DeliveryRules:  rules.New(DeliveryChain(nil, nil), logger),
		Notifier:       notifier,
		Publisher:      publisher,
		Ledger:         ledger,
		Report: ReportConfig{
			Recipients: []string{"ops@example.cl"},
			Subject:    "reporte diario",
			FileName:   "reporte_registro",
		},
		Clock:  fixedClock{now: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)},
		IDs:    &sequenceIDs{},
		Logger: logger,
	}
	if opts != nil {
		opts(&options)
	}
	return &testHarness{
		runner:    New(options),
		objects:   objects,
		store:     partitioned,
		notifier:  notifier,
		publisher: publisher,
		ledger:    ledger,
	}
}

func emptyRefs() refdata.Tables {
	return refdata.Tables{
		Companies: table.New(refdata.CompaniesColumns...),
		Staff:     table.New(refdata.StaffColumns...),
	}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	status, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, "2026-08-30", status.RunDate)
	require.Equal(t, 3, status.Extracted)
	require.Equal(t, 3, status.Transformed)
	require.True(t, status.CountsMatch)
	require.Empty(t, status.Alarms)
	require.Len(t, status.Sources, 2)
	require.Equal(t, 1, status.Sources[1].SkippedRows)

	raw, err := h.store.ReadRaw(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, raw, 3)

	processed, err := h.store.ReadEnriched(context.Background(), harvest.TierProcessed, "2026-08-30")
	require.NoError(t, err)
	require.Equal(t, 3, processed.Len())
	delivery, err := h.store.ReadEnriched(context.Background(), harvest.TierDelivery, "2026-08-30")
	require.NoError(t, err)
	require.Equal(t, 3, delivery.Len())

	require.Len(t, h.notifier.Deliveries(), 1)
	require.Equal(t, "reporte_registro_2026-08-30.csv", h.notifier.Deliveries()[0].AttachmentName)
	require.Len(t, h.publisher.Payloads(), 1)
	require.Len(t, h.ledger.recorded, 1)
	require.Equal(t, status.RunID, h.ledger.recorded[0].RunID)

	last, ok := h.runner.LastStatus()
	require.True(t, ok)
	require.Equal(t, status.RunID, last.RunID)
}

func TestRunSourceIsolation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) {
		o.Jobs[0].Extractor = &fakeExtractor{
			source:     harvest.SourceRegistry,
			extractErr: &harvest.SchemaDriftError{Source: harvest.SourceRegistry, Detail: "missing tbody"},
		}
	})

	status, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.True(t, status.Sources[0].Failed)
	require.Contains(t, status.Sources[0].Error, "missing tbody")
	require.False(t, status.Sources[1].Failed)

	// the gazette still contributed
	raw, err := h.store.ReadRaw(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	require.Equal(t, harvest.SourceGazette, raw[0].Source)
}

func TestRunValidationFailureKeepsBatchOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) {
		o.Jobs[0].Extractor = &fakeExtractor{
			source:   harvest.SourceRegistry,
			records:  []harvest.NormalizedRecord{record(harvest.SourceRegistry, "76123456")},
			validErr: &harvest.ValidationError{Source: harvest.SourceRegistry, Expected: 10, Extracted: 1},
		}
		o.Jobs = o.Jobs[:1]
	})

	status, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	require.True(t, status.Sources[0].Failed)
	require.Equal(t, 0, status.Extracted)

	raw, err := h.store.ReadRaw(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Empty(t, raw)
}

func TestRunReconciliationAlarmBlocksEnrichedWrites(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) {
		o.Enricher = droppingEnricher{}
	})

	status, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.False(t, status.CountsMatch)
	require.Len(t, status.Alarms, 1)
	require.Contains(t, status.Alarms[0], "3")

	// raw stays, enriched tiers are blocked
	raw, err := h.store.ReadRaw(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, raw, 3)
	processed, err := h.store.ReadEnriched(context.Background(), harvest.TierProcessed, "2026-08-30")
	require.NoError(t, err)
	require.Equal(t, 0, processed.Len())

	// the run is still reported and recorded
	require.Len(t, h.publisher.Payloads(), 1)
	require.Len(t, h.ledger.recorded, 1)
}

func TestRunReleasesBrowserOnFailure(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{}
	h := newHarness(t, func(o *Options) {
		o.Jobs = o.Jobs[:1]
		o.Jobs[0].NewBrowser = func(context.Context) (harvest.Browser, error) {
			return browser, nil
		}
		o.Jobs[0].Extractor = &fakeExtractor{
			source:     harvest.SourceRegistry,
			extractErr: errors.New("session lost"),
		}
	})

	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	require.True(t, browser.closed)
}

func TestRunReferenceFailureDegradesToEmptyTables(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) {
		o.Refs = &fakeRefs{err: errors.New("warehouse offline")}
	})

	status, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	require.True(t, status.CountsMatch)
	require.Equal(t, 3, status.Transformed)

	processed, err := h.store.ReadEnriched(context.Background(), harvest.TierProcessed, "2026-08-30")
	require.NoError(t, err)
	require.Equal(t, 3, processed.Len())
	_, hasSegment := processed.Rows[0]["segment"]
	require.False(t, hasSegment)
}

func TestRunStorageFailureIsFlaggedNotFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.objects.FailPuts = true

	status, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, status.StorageErrors)
	// the in-memory batch still flows through enrichment
	require.Equal(t, 3, status.Extracted)
	require.Equal(t, 3, status.Transformed)
	require.Len(t, h.publisher.Payloads(), 1)
}
