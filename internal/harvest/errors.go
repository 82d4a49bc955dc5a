package harvest

import "fmt"

// SchemaDriftError signals that a source page's layout no longer matches the
// expected structure. It is fatal for the whole batch: silent partial
// extraction would be worse than stopping.
type SchemaDriftError struct {
	Source   Source
	Detail   string
	Expected int
	Got      int
}

func (e *SchemaDriftError) Error() string {
	if e.Expected != 0 || e.Got != 0 {
		return fmt.Sprintf("%s: schema drift: %s (expected %d columns, got %d)", e.Source, e.Detail, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: schema drift: %s", e.Source, e.Detail)
}

// ValidationError signals that the extracted row count disagrees with the
// page's self-reported total. The batch must not be persisted.
type ValidationError struct {
	Source    Source
	Expected  int
	Extracted int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: count validation failed: expected %d records, extracted %d", e.Source, e.Expected, e.Extracted)
}

// StorageWriteError wraps a failed partition write. Raw retention is
// best-effort, so callers log it and continue the run.
type StorageWriteError struct {
	Partition Partition
	Err       error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("write %s/date=%s: %v", e.Partition.Tier, e.Partition.Date, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// ReconciliationAlarm reports that enrichment changed the row count. The
// orchestrator withholds the affected partition writes and surfaces the alarm
// in the run status instead of crashing.
type ReconciliationAlarm struct {
	RawCount   int
	FinalCount int
}

func (e *ReconciliationAlarm) Error() string {
	return fmt.Sprintf("reconciliation failed: %d raw records became %d enriched rows", e.RawCount, e.FinalCount)
}
