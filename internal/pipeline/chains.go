package pipeline

import (
	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/rules"
)

// ProcessedChain is the rule chain applied before the processed-tier write.
func ProcessedChain() []rules.Rule {
	return []rules.Rule{
		{
			Name:         "normalize dates",
			Kind:         rules.KindDateFormat,
			Columns:      []string{"event_date", "ingestion_date"},
			InputLayout:  harvest.DateLayout,
			OutputLayout: harvest.DateLayout,
		},
		{
			Name:    "strip numeric artifacts",
			Kind:    rules.KindCleanNumber,
			Columns: []string{"identifier", "attention_number", "staff_id", "account_owner_code"},
		},
	}
}

// DeliveryChain is the additional rule chain that narrows the processed table
// down to the delivery layout.
func DeliveryChain(actionTypeBlocklist, deliveryColumns []string) []rules.Rule {
	chain := []rules.Rule{
		{
			Name:    "require identifier and name",
			Kind:    rules.KindNotNull,
			Columns: []string{"identifier", "display_name"},
		},
	}
	if len(actionTypeBlocklist) > 0 {
		chain = append(chain, rules.Rule{
			Name:      "exclude blocked action types",
			Kind:      rules.KindExcludeValues,
			Column:    "action_type",
			Blocklist: actionTypeBlocklist,
		})
	}
	if len(deliveryColumns) > 0 {
		chain = append(chain, rules.Rule{
			Name:    "delivery layout",
			Kind:    rules.KindProject,
			Columns: deliveryColumns,
		})
	}
	return chain
}
