// Package harvest defines core types shared across subsystems.
package harvest

import (
	"fmt"
	"time"
)

// Source identifies which public source produced a record.
type Source string

// Known record sources.
const (
	SourceRegistry Source = "registry"
	SourceGazette  Source = "gazette"
)

// Tier names a storage stage within the partitioned layout.
type Tier string

// Storage tiers, in pipeline order.
const (
	TierRaw       Tier = "raw"
	TierProcessed Tier = "processed"
	TierDelivery  Tier = "delivery"
)

// DateLayout is the canonical date format used for partition keys and
// date-valued columns.
const DateLayout = "2006-01-02"

// NormalizedRecord is one harvested registration event. It is immutable once
// written to the raw tier.
type NormalizedRecord struct {
	Source               Source    `json:"source"`
	Identifier           string    `json:"identifier,omitempty"`
	IdentifierCheckDigit string    `json:"identifier_check_digit,omitempty"`
	DisplayName          string    `json:"display_name"`
	DocumentURL          string    `json:"document_url,omitempty"`
	ActionType           string    `json:"action_type"`
	AttentionNumber      string    `json:"attention_number,omitempty"`
	VerificationCode     string    `json:"verification_code"`
	EventDate            time.Time `json:"event_date"`
	IngestionDate        time.Time `json:"ingestion_date"`
}

// PartitionKey returns the raw-tier partition value for the record.
func (r NormalizedRecord) PartitionKey() string {
	return r.IngestionDate.Format(DateLayout)
}

// EnrichedRecord augments a NormalizedRecord with reference-data columns. It is
// created once per enrichment run and never mutated afterwards.
type EnrichedRecord struct {
	NormalizedRecord

	Segment          string `json:"segment,omitempty"`
	Platform         string `json:"platform,omitempty"`
	AccountOwnerCode string `json:"account_owner_code,omitempty"`
	StaffID          string `json:"staff_id,omitempty"`
	StaffName        string `json:"staff_name,omitempty"`
	StaffRole        string `json:"staff_role,omitempty"`
	StaffEmail       string `json:"staff_email,omitempty"`
	StaffUnit        string `json:"staff_unit,omitempty"`

	// OriginSequence anchors the record to its position in the raw batch and
	// is the reconciliation key after joins.
	OriginSequence int `json:"-"`
}

// Partition identifies a (tier, ingestion date) storage location.
type Partition struct {
	Tier Tier
	Date string
}

// SourceStatus summarizes one source's contribution to a run.
type SourceStatus struct {
	Source      Source `json:"source"`
	Extracted   int    `json:"extracted"`
	SkippedRows int    `json:"skipped_rows"`
	Failed      bool   `json:"failed"`
	Error       string `json:"error,omitempty"`
}

// RunStatus is the status payload emitted at the end of every run. Data-quality
// problems are flagged here instead of failing the process.
type RunStatus struct {
	RunID         string         `json:"run_id"`
	RunDate       string         `json:"run_date"`
	Sources       []SourceStatus `json:"sources"`
	RawLocations  []string       `json:"raw_locations,omitempty"`
	Extracted     int            `json:"extracted"`
	Transformed   int            `json:"transformed"`
	CountsMatch   bool           `json:"counts_match"`
	Alarms        []string       `json:"alarms,omitempty"`
	StorageErrors []string       `json:"storage_errors,omitempty"`
	ReportResult  string         `json:"report_result,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// CountsLine renders the operator-facing extracted/transformed summary.
func (s RunStatus) CountsLine() string {
	return fmt.Sprintf("extracted:%d transformed:%d", s.Extracted, s.Transformed)
}
