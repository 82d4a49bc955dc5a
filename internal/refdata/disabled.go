package refdata

import (
	"context"
	"fmt"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// DisabledEngine stands in when no query engine is configured. Every job
// reaches a failed terminal state immediately, so the client degrades to empty
// reference tables instead of blocking the harvest.
type DisabledEngine struct{}

// Disabled returns a DisabledEngine.
func Disabled() DisabledEngine {
	return DisabledEngine{}
}

// Submit accepts the query and returns a placeholder job id.
func (DisabledEngine) Submit(context.Context, string, string) (string, error) {
	return "disabled", nil
}

// Poll reports the job as failed.
func (DisabledEngine) Poll(context.Context, string) (harvest.QueryState, error) {
	return harvest.QueryStateFailed, nil
}

// ResultLocation is never reachable for a failed job.
func (DisabledEngine) ResultLocation(context.Context, string) (string, error) {
	return "", fmt.Errorf("query engine is not configured")
}
