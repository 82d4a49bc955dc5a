// Package pipeline sequences one harvest run: extract each source, persist
// raw, enrich against reference data, apply the rule chains, write the
// processed and delivery tiers, and emit the run status.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/enrich"
	"github.com/vigia-data/registry-harvester/internal/extract"
	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/metrics"
	"github.com/vigia-data/registry-harvester/internal/refdata"
	"github.com/vigia-data/registry-harvester/internal/report"
	"github.com/vigia-data/registry-harvester/internal/rules"
	"github.com/vigia-data/registry-harvester/internal/table"
)

// Store is the partitioned storage surface the runner needs. Satisfied by
// store.Partitioned.
type Store interface {
	AppendRaw(ctx context.Context, records []harvest.NormalizedRecord) ([]string, error)
	ReadRaw(ctx context.Context, date string) ([]harvest.NormalizedRecord, error)
	WriteEnriched(ctx context.Context, tier harvest.Tier, tbl *table.Table) ([]harvest.Partition, error)
	ReadEnriched(ctx context.Context, tier harvest.Tier, date string) (*table.Table, error)
}

// Enricher joins raw records against reference data. Satisfied by
// enrich.Engine.
type Enricher interface {
	Enrich(raw []harvest.NormalizedRecord, refs refdata.Tables) ([]harvest.EnrichedRecord, enrich.Stats)
}

// RefFetcher retrieves both reference tables. Satisfied by refdata.Client.
type RefFetcher interface {
	Fetch(ctx context.Context) (refdata.Tables, error)
}

// Ledger records the run in the operator-visible run history.
type Ledger interface {
	Record(ctx context.Context, status harvest.RunStatus) error
}

// SourceJob binds one source to its browser and extractor. The browser is
// constructed per run and released on every exit path.
type SourceJob struct {
	Source     harvest.Source
	URL        string
	NewBrowser func(ctx context.Context) (harvest.Browser, error)
	Extractor  extract.Extractor
}

// ReportConfig describes the run report delivery.
type ReportConfig struct {
	Recipients []string
	Subject    string
	Body       string
	FileName   string
}

// Runner executes harvest runs. Notifier, publisher, ledger, and weekly are
// optional; a nil collaborator disables that step.
type Runner struct {
	jobs           []SourceJob
	store          Store
	refs           RefFetcher
	enricher       Enricher
	processedRules *rules.Engine
	deliveryRules  *rules.Engine
	notifier       harvest.Notifier
	publisher      harvest.Publisher
	ledger         Ledger
	weekly         *report.Weekly
	reportCfg      ReportConfig
	clock          harvest.Clock
	ids            harvest.IDGenerator
	logger         *zap.Logger

	mu   sync.RWMutex
	last *harvest.RunStatus
}

// Options carries the runner's collaborators.
type Options struct {
	Jobs           []SourceJob
	Store          Store
	Refs           RefFetcher
	Enricher       Enricher
	ProcessedRules *rules.Engine
	DeliveryRules  *rules.Engine
	Notifier       harvest.Notifier
	Publisher      harvest.Publisher
	Ledger         Ledger
	Weekly         *report.Weekly
	Report         ReportConfig
	Clock          harvest.Clock
	IDs            harvest.IDGenerator
	Logger         *zap.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	return &Runner{
		jobs:           opts.Jobs,
		store:          opts.Store,
		refs:           opts.Refs,
		enricher:       opts.Enricher,
		processedRules: opts.ProcessedRules,
		deliveryRules:  opts.DeliveryRules,
		notifier:       opts.Notifier,
		publisher:      opts.Publisher,
		ledger:         opts.Ledger,
		weekly:         opts.Weekly,
		reportCfg:      opts.Report,
		clock:          opts.Clock,
		ids:            opts.IDs,
		logger:         opts.Logger,
	}
}

// LastStatus returns the status of the most recent run, if any.
func (r *Runner) LastStatus() (harvest.RunStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return harvest.RunStatus{}, false
	}
	return *r.last, true
}

// Run executes one harvest. Data-quality problems are flagged in the returned
// status, not returned as errors; the error is reserved for failures that
// prevent the run from producing a status at all.
func (r *Runner) Run(ctx context.Context) (harvest.RunStatus, error) {
	metrics.Init()

	runID, err := r.ids.NewID()
	if err != nil {
		return harvest.RunStatus{}, fmt.Errorf("generate run id: %w", err)
	}
	dates := extract.DatesFor(r.clock.Now())
	status := harvest.RunStatus{
		RunID:     runID,
		RunDate:   dates.IngestionDate.Format(harvest.DateLayout),
		StartedAt: r.clock.Now(),
	}
	logger := r.logger.With(zap.String("run_id", runID), zap.String("run_date", status.RunDate))
	logger.Info("harvest run starting")

	batch := r.extractSources(ctx, logger, &status)
	rawPersisted := r.persistRaw(ctx, logger, &status, batch)

	// read the whole day back so a crash-and-retry run republishes every
	// fragment, not just its own
	raw := batch
	if rawPersisted {
		if readback, err := r.store.ReadRaw(ctx, status.RunDate); err != nil {
			logger.Warn("could not read back raw partition, continuing with this run's batch", zap.Error(err))
		} else {
			raw = readback
		}
	}
	status.Extracted = len(raw)

	refs := r.fetchReferences(ctx, logger)
	enriched, _ := r.enricher.Enrich(raw, refs)
	status.Transformed = len(enriched)
	status.CountsMatch = len(enriched) == len(raw)

	if !status.CountsMatch {
		alarm := &harvest.ReconciliationAlarm{RawCount: len(raw), FinalCount: len(enriched)}
		logger.Error("enrichment broke row-count conservation", zap.Error(alarm))
		status.Alarms = append(status.Alarms, alarm.Error())
		metrics.ObserveReconciliationAlarm()
	} else {
		r.writeTiers(ctx, logger, &status, enriched)
	}

	status.FinishedAt = r.clock.Now()
	metrics.ObserveRunDuration(status.FinishedAt.Sub(status.StartedAt))

	r.deliverReport(ctx, logger, &status)
	r.recordRun(ctx, logger, status)

	r.mu.Lock()
	r.last = &status
	r.mu.Unlock()

	logger.Info("harvest run finished",
		zap.String("counts", status.CountsLine()),
		zap.Bool("counts_match", status.CountsMatch))
	return status, nil
}

// extractSources runs every source job in isolation: one source failing must
// not keep the other from contributing.
func (r *Runner) extractSources(ctx context.Context, logger *zap.Logger, status *harvest.RunStatus) []harvest.NormalizedRecord {
	var batch []harvest.NormalizedRecord
	for _, job := range r.jobs {
		records, skipped, err := r.extractOne(ctx, job)
		src := harvest.SourceStatus{Source: job.Source, Extracted: len(records), SkippedRows: skipped}
		if err != nil {
			logger.Error("source extraction failed",
				zap.String("source", string(job.Source)),
				zap.Error(err))
			src = harvest.SourceStatus{Source: job.Source, Failed: true, Error: err.Error()}
			metrics.ObserveSourceFailure(string(job.Source))
		} else {
			batch = append(batch, records...)
			metrics.ObserveExtraction(string(job.Source), len(records), skipped)
		}
		status.Sources = append(status.Sources, src)
	}
	return batch
}

func (r *Runner) extractOne(ctx context.Context, job SourceJob) (records []harvest.NormalizedRecord, skipped int, err error) {
	browser, err := job.NewBrowser(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			r.logger.Warn("browser close failed",
				zap.String("source", string(job.Source)),
				zap.Error(closeErr))
		}
	}()

	page, err := browser.Navigate(ctx, job.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("navigate to %s: %w", job.URL, err)
	}
	records, err = job.Extractor.Extract(ctx, page)
	if err != nil {
		return nil, job.Extractor.Skipped(), err
	}
	// a batch that fails validation is never persisted
	if err := job.Extractor.Validate(ctx, page, records); err != nil {
		return nil, job.Extractor.Skipped(), err
	}
	return records, job.Extractor.Skipped(), nil
}

func (r *Runner) persistRaw(ctx context.Context, logger *zap.Logger, status *harvest.RunStatus, batch []harvest.NormalizedRecord) bool {
	if len(batch) == 0 {
		return true
	}
	locations, err := r.store.AppendRaw(ctx, batch)
	status.RawLocations = locations
	if err != nil {
		logger.Error("raw write failed, continuing with in-memory batch", zap.Error(err))
		status.StorageErrors = append(status.StorageErrors, err.Error())
		metrics.ObserveStorageWriteError(string(harvest.TierRaw))
		return false
	}
	return true
}

func (r *Runner) fetchReferences(ctx context.Context, logger *zap.Logger) refdata.Tables {
	refs, err := r.refs.Fetch(ctx)
	if err != nil {
		logger.Warn("reference lookup failed, enriching with empty tables", zap.Error(err))
		return refdata.Tables{
			Companies: table.New(refdata.CompaniesColumns...),
			Staff:     table.New(refdata.StaffColumns...),
		}
	}
	return refs
}

func (r *Runner) writeTiers(ctx context.Context, logger *zap.Logger, status *harvest.RunStatus, enriched []harvest.EnrichedRecord) {
	base := enrich.ToTable(enriched)

	processed := r.processedRules.ApplyAll(base)
	metrics.ObserveRuleDrop(string(harvest.TierProcessed), base.Len()-processed.Len())
	r.writeTier(ctx, logger, status, harvest.TierProcessed, processed)

	delivery := r.deliveryRules.ApplyAll(processed)
	metrics.ObserveRuleDrop(string(harvest.TierDelivery), processed.Len()-delivery.Len())
	r.writeTier(ctx, logger, status, harvest.TierDelivery, delivery)
}

func (r *Runner) writeTier(ctx context.Context, logger *zap.Logger, status *harvest.RunStatus, tier harvest.Tier, tbl *table.Table) {
	if _, err := r.store.WriteEnriched(ctx, tier, tbl); err != nil {
		logger.Error("tier write failed",
			zap.String("tier", string(tier)),
			zap.Error(err))
		status.StorageErrors = append(status.StorageErrors, err.Error())
		metrics.ObserveStorageWriteError(string(tier))
	}
}

func (r *Runner) deliverReport(ctx context.Context, logger *zap.Logger, status *harvest.RunStatus) {
	if r.notifier == nil || len(r.reportCfg.Recipients) == 0 {
		return
	}

	delivery, err := r.store.ReadEnriched(ctx, harvest.TierDelivery, status.RunDate)
	if err != nil {
		logger.Warn("could not read delivery partition for the report", zap.Error(err))
		delivery = table.New()
	}
	attachment, err := report.BuildAttachment(harvest.Attachment{Table: tableInput(delivery)})
	if err != nil {
		logger.Warn("could not build report attachment", zap.Error(err))
		attachment = nil
	}

	var weekly string
	if r.weekly != nil {
		weekly = report.FormatWeekly(r.weekly.Stats(ctx))
	}
	body := r.reportCfg.Body
	if body != "" {
		body += "\n\n"
	}
	body += report.Summary(*status, weekly)

	receipt, err := r.notifier.Send(ctx, r.reportCfg.Recipients, r.reportCfg.Subject,
		body, attachment, report.AttachmentName(r.reportCfg.FileName, *status))
	if err != nil {
		logger.Error("report delivery failed", zap.Error(err))
		status.ReportResult = "error: " + err.Error()
		return
	}
	status.ReportResult = receipt
}

func (r *Runner) recordRun(ctx context.Context, logger *zap.Logger, status harvest.RunStatus) {
	if r.ledger != nil {
		if err := r.ledger.Record(ctx, status); err != nil {
			logger.Error("run ledger insert failed", zap.Error(err))
		}
	}
	if r.publisher != nil {
		if _, err := r.publisher.Publish(ctx, status); err != nil {
			logger.Error("run event publish failed", zap.Error(err))
		}
	}
}

func tableInput(tbl *table.Table) *harvest.TableInput {
	in := &harvest.TableInput{Columns: tbl.Columns}
	for _, row := range tbl.Rows {
		cells := make([]string, len(tbl.Columns))
		for i, col := range tbl.Columns {
			cells[i] = row[col]
		}
		in.Rows = append(in.Rows, cells)
	}
	return in
}
