package enrich

import (
	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/table"
)

// Columns is the canonical column order of an enriched table.
var Columns = []string{
	"source",
	"identifier",
	"identifier_check_digit",
	"display_name",
	"document_url",
	"action_type",
	"attention_number",
	"verification_code",
	"event_date",
	"ingestion_date",
	"segment",
	"platform",
	"account_owner_code",
	"staff_id",
	"staff_name",
	"staff_role",
	"staff_email",
	"staff_unit",
}

// ToTable converts enriched records to a table. Empty nullable fields become
// null cells, not blanks, so downstream not-null rules see them as missing.
func ToTable(records []harvest.EnrichedRecord) *table.Table {
	tbl := table.New(Columns...)
	for _, rec := range records {
		row := table.Row{
			"source":         string(rec.Source),
			"display_name":   rec.DisplayName,
			"action_type":    rec.ActionType,
			"event_date":     rec.EventDate.Format(harvest.DateLayout),
			"ingestion_date": rec.IngestionDate.Format(harvest.DateLayout),
		}
		setIfPresent(row, "identifier", rec.Identifier)
		setIfPresent(row, "identifier_check_digit", rec.IdentifierCheckDigit)
		setIfPresent(row, "document_url", rec.DocumentURL)
		setIfPresent(row, "attention_number", rec.AttentionNumber)
		setIfPresent(row, "verification_code", rec.VerificationCode)
		setIfPresent(row, "segment", rec.Segment)
		setIfPresent(row, "platform", rec.Platform)
		setIfPresent(row, "account_owner_code", rec.AccountOwnerCode)
		setIfPresent(row, "staff_id", rec.StaffID)
		setIfPresent(row, "staff_name", rec.StaffName)
		setIfPresent(row, "staff_role", rec.StaffRole)
		setIfPresent(row, "staff_email", rec.StaffEmail)
		setIfPresent(row, "staff_unit", rec.StaffUnit)
		tbl.Append(row)
	}
	return tbl
}

func setIfPresent(row table.Row, column, value string) {
	if value != "" {
		row[column] = value
	}
}
