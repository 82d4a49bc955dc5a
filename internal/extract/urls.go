package extract

import (
	"fmt"
	"time"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// SourceURL appends the event date to a source's base URL. Each source expects
// its own date encoding: the registry wants DD-MM-YYYY, the gazette DD/MM/YYYY.
func SourceURL(source harvest.Source, baseURL string, eventDate time.Time) (string, error) {
	switch source {
	case harvest.SourceRegistry:
		return baseURL + eventDate.Format("02-01-2006"), nil
	case harvest.SourceGazette:
		return baseURL + eventDate.Format("02/01/2006"), nil
	default:
		return "", fmt.Errorf("unknown source %q", source)
	}
}
