package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/table"
)

const (
	// partitionColumn is the table column every enriched tier is laid out by.
	partitionColumn = "ingestion_date"

	// enrichedFragment is the canonical object name inside an enriched
	// partition. Writing the same partition twice replaces it, which makes
	// re-runs idempotent without needing a delete primitive.
	enrichedFragment = "part-00000.parquet"

	jsonlContentType   = "application/x-ndjson"
	parquetContentType = "application/vnd.apache.parquet"
)

// Partitioned lays records out as date partitions on top of an object store.
// The raw tier is append-only JSONL; the processed and delivery tiers are
// full-replace parquet.
type Partitioned struct {
	objects harvest.ObjectStore
	ids     harvest.IDGenerator
	prefix  string
	logger  *zap.Logger
}

// NewPartitioned creates a partitioned store rooted at prefix.
func NewPartitioned(objects harvest.ObjectStore, ids harvest.IDGenerator, prefix string, logger *zap.Logger) *Partitioned {
	return &Partitioned{
		objects: objects,
		ids:     ids,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger,
	}
}

func (s *Partitioned) partitionPath(tier harvest.Tier, date string) string {
	return path.Join(s.prefix, string(tier), "date="+date)
}

// AppendRaw writes one JSONL fragment per partition touched by records. Each
// fragment gets a fresh UUID7 name, so concurrent or repeated appends never
// clobber earlier ones. It returns the locations of the written fragments.
func (s *Partitioned) AppendRaw(ctx context.Context, records []harvest.NormalizedRecord) ([]string, error) {
	byDate := make(map[string][]harvest.NormalizedRecord)
	for _, rec := range records {
		key := rec.PartitionKey()
		byDate[key] = append(byDate[key], rec)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	locations := make([]string, 0, len(dates))
	for _, date := range dates {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, rec := range byDate[date] {
			if err := enc.Encode(rec); err != nil {
				return locations, &harvest.StorageWriteError{
					Partition: harvest.Partition{Tier: harvest.TierRaw, Date: date},
					Err:       fmt.Errorf("encode record: %w", err),
				}
			}
		}

		fragment, err := s.ids.NewID()
		if err != nil {
			return locations, &harvest.StorageWriteError{
				Partition: harvest.Partition{Tier: harvest.TierRaw, Date: date},
				Err:       fmt.Errorf("name fragment: %w", err),
			}
		}

		objectPath := path.Join(s.partitionPath(harvest.TierRaw, date), fragment+".jsonl")
		location, err := s.objects.Put(ctx, objectPath, jsonlContentType, buf.Bytes())
		if err != nil {
			return locations, &harvest.StorageWriteError{
				Partition: harvest.Partition{Tier: harvest.TierRaw, Date: date},
				Err:       err,
			}
		}
		s.logger.Info("appended raw fragment",
			zap.String("location", location),
			zap.Int("records", len(byDate[date])))
		locations = append(locations, location)
	}
	return locations, nil
}

// ReadRaw returns every record in the raw partition for date, across all
// fragments. Lines that fail to decode are logged and skipped so one corrupt
// fragment cannot block a whole day's reconciliation.
func (s *Partitioned) ReadRaw(ctx context.Context, date string) ([]harvest.NormalizedRecord, error) {
	prefix := s.partitionPath(harvest.TierRaw, date) + "/"
	fragments, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list raw partition %q: %w", prefix, err)
	}

	var records []harvest.NormalizedRecord
	for _, fragment := range fragments {
		data, err := s.objects.Get(ctx, fragment)
		if err != nil {
			return nil, fmt.Errorf("get raw fragment %q: %w", fragment, err)
		}
		for i, line := range bytes.Split(data, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var rec harvest.NormalizedRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				s.logger.Warn("skipping undecodable raw line",
					zap.String("fragment", fragment),
					zap.Int("line", i+1),
					zap.Error(err))
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// WriteEnriched splits tbl by ingestion date and writes one parquet fragment
// per partition of tier. A partition written twice is fully replaced. The
// table must carry the partition column; refusing a table without it is
// cheaper than discovering an unqueryable layout later.
func (s *Partitioned) WriteEnriched(ctx context.Context, tier harvest.Tier, tbl *table.Table) ([]harvest.Partition, error) {
	if !tbl.Has(partitionColumn) {
		return nil, fmt.Errorf("table is missing partition column %q", partitionColumn)
	}

	groups, err := tbl.GroupBy(partitionColumn)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(groups))
	for date := range groups {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	written := make([]harvest.Partition, 0, len(dates))
	for _, date := range dates {
		data, err := encodeParquet(groups[date])
		if err != nil {
			return written, &harvest.StorageWriteError{
				Partition: harvest.Partition{Tier: tier, Date: date},
				Err:       err,
			}
		}
		objectPath := path.Join(s.partitionPath(tier, date), enrichedFragment)
		location, err := s.objects.Put(ctx, objectPath, parquetContentType, data)
		if err != nil {
			return written, &harvest.StorageWriteError{
				Partition: harvest.Partition{Tier: tier, Date: date},
				Err:       err,
			}
		}
		s.logger.Info("wrote enriched partition",
			zap.String("tier", string(tier)),
			zap.String("location", location),
			zap.Int("records", groups[date].Len()))
		written = append(written, harvest.Partition{Tier: tier, Date: date})
	}
	return written, nil
}

// ReadEnriched returns the table stored in tier's partition for date. A
// partition that was never written comes back as an empty table, since an
// empty day and an absent day are the same thing downstream.
func (s *Partitioned) ReadEnriched(ctx context.Context, tier harvest.Tier, date string) (*table.Table, error) {
	prefix := s.partitionPath(tier, date) + "/"
	fragments, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s partition %q: %w", tier, prefix, err)
	}
	if len(fragments) == 0 {
		return table.New(), nil
	}

	var out *table.Table
	for _, fragment := range fragments {
		data, err := s.objects.Get(ctx, fragment)
		if err != nil {
			return nil, fmt.Errorf("get fragment %q: %w", fragment, err)
		}
		columns, err := fragmentColumns(data)
		if err != nil {
			return nil, err
		}
		tbl, err := decodeParquet(data, columns)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = tbl
			continue
		}
		for _, row := range tbl.Rows {
			out.Append(row)
		}
	}
	return out, nil
}
