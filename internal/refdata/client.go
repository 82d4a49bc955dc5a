// Package refdata fetches the company and staff reference tables from the
// analytic query engine: submit a query, poll until a terminal state, read the
// CSV result from object storage.
package refdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/table"
)

// Tables holds both reference tables used by an enrichment run.
type Tables struct {
	Companies *table.Table
	Staff     *table.Table
}

// Config locates the two reference tables and bounds the poll loop.
type Config struct {
	CompaniesSchema string
	CompaniesTable  string
	StaffSchema     string
	StaffTable      string
	PollInterval    time.Duration
	Budget          time.Duration
}

// Client runs reference queries. A query that reaches a failed or cancelled
// terminal state yields an empty table, not an error: enrichment degrades to
// null reference columns rather than losing the day's raw records.
type Client struct {
	engine  harvest.QueryEngine
	objects harvest.ObjectStore
	cfg     Config
	logger  *zap.Logger
}

// New creates a reference-data client.
func New(engine harvest.QueryEngine, objects harvest.ObjectStore, cfg Config, logger *zap.Logger) *Client {
	return &Client{engine: engine, objects: objects, cfg: cfg, logger: logger}
}

// Fetch retrieves both reference tables.
func (c *Client) Fetch(ctx context.Context) (Tables, error) {
	companies, err := c.fetch(ctx, companiesQuery(c.cfg.CompaniesSchema, c.cfg.CompaniesTable),
		c.cfg.CompaniesSchema, companiesRename, CompaniesColumns)
	if err != nil {
		return Tables{}, fmt.Errorf("fetch companies reference: %w", err)
	}
	staff, err := c.fetch(ctx, staffQuery(c.cfg.StaffSchema, c.cfg.StaffTable),
		c.cfg.StaffSchema, staffRename, StaffColumns)
	if err != nil {
		return Tables{}, fmt.Errorf("fetch staff reference: %w", err)
	}
	return Tables{Companies: companies, Staff: staff}, nil
}

func (c *Client) fetch(ctx context.Context, query, schema string, rename map[string]string, columns []string) (*table.Table, error) {
	jobID, err := c.engine.Submit(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("submit query: %w", err)
	}

	state, err := c.await(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if state != harvest.QueryStateSucceeded {
		c.logger.Warn("reference query did not succeed, continuing with empty table",
			zap.String("job_id", jobID),
			zap.String("state", string(state)))
		return table.New(columns...), nil
	}

	location, err := c.engine.ResultLocation(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("locate result for job %s: %w", jobID, err)
	}
	data, err := c.objects.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read result %q: %w", location, err)
	}
	tbl, err := parseCSV(data, rename, columns)
	if err != nil {
		return nil, fmt.Errorf("parse result %q: %w", location, err)
	}
	c.logger.Info("fetched reference table",
		zap.String("job_id", jobID),
		zap.Int("rows", tbl.Len()))
	return tbl, nil
}

// await polls the job until it reaches a terminal state or the budget runs out.
func (c *Client) await(ctx context.Context, jobID string) (harvest.QueryState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Budget)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		state, err := c.engine.Poll(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("poll job %s: %w", jobID, err)
		}
		if state.Terminal() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("job %s did not finish in time: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// parseCSV decodes a query result and renames its header to the canonical
// columns. Unknown warehouse columns are dropped; empty cells stay blank.
func parseCSV(data []byte, rename map[string]string, columns []string) (*table.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return table.New(columns...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	canonical := make([]string, len(header))
	for i, name := range header {
		canonical[i] = rename[name]
	}

	tbl := table.New(columns...)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(table.Row, len(columns))
		for i, value := range fields {
			if i >= len(canonical) || canonical[i] == "" {
				continue
			}
			row[canonical[i]] = value
		}
		tbl.Append(row)
	}
	return tbl, nil
}
