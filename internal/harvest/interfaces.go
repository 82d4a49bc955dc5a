package harvest

import (
	"context"
	"time"
)

// Page is a loaded source page. Implementations wrap either a real browser tab
// or a statically fetched document; extractors depend only on this surface.
type Page interface {
	// Location returns the page's current URL.
	Location() string
	// HTML returns the full current markup.
	HTML(ctx context.Context) (string, error)
	// Text returns the visible text of the first element matching the locator.
	Text(ctx context.Context, locator string) (string, error)
	// Click waits until the first element matching the locator is clickable,
	// then clicks it, following any resulting navigation.
	Click(ctx context.Context, locator string) error
	// SelectValue sets a <select> control matching the locator to value.
	SelectValue(ctx context.Context, locator, value string) error
}

// Browser owns the page resource for a run. Close must be called on every exit
// path; leaking sessions across daily invocations exhausts the host.
type Browser interface {
	Navigate(ctx context.Context, url string) (Page, error)
	Close() error
}

// ObjectStore is the narrow partitioned-object-storage contract. Paths follow
// <base>/<tier>/date=<YYYY-MM-DD>/<fragment>.
type ObjectStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// QueryState is the lifecycle state reported by the analytic query engine.
type QueryState string

// Query engine job states.
const (
	QueryStateRunning   QueryState = "running"
	QueryStateSucceeded QueryState = "succeeded"
	QueryStateFailed    QueryState = "failed"
	QueryStateCancelled QueryState = "cancelled"
)

// Terminal reports whether the state ends the poll loop.
func (s QueryState) Terminal() bool {
	return s == QueryStateSucceeded || s == QueryStateFailed || s == QueryStateCancelled
}

// QueryEngine submits analytic queries and exposes their async lifecycle.
type QueryEngine interface {
	Submit(ctx context.Context, query string, schema string) (string, error)
	Poll(ctx context.Context, jobID string) (QueryState, error)
	ResultLocation(ctx context.Context, jobID string) (string, error)
}

// Attachment is the closed input union for report delivery. Exactly one field
// is set; the call site resolves which, never runtime type inspection.
type Attachment struct {
	Table   *TableInput
	Records *RecordListInput
}

// TableInput attaches tabular data with an explicit column order.
type TableInput struct {
	Columns []string
	Rows    [][]string
}

// RecordListInput attaches a flat record list.
type RecordListInput struct {
	Records []EnrichedRecord
}

// Notifier delivers the run report. Transport is an external concern.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string, attachment []byte, attachmentName string) (string, error)
}

// Publisher pushes run completion events to the event channel.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
