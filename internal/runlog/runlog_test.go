package runlog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

func TestRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "harvest_runs")
	require.NoError(t, err)

	started := time.Unix(1790000000, 0).UTC()
	status := harvest.RunStatus{
		RunID:       "run-1",
		RunDate:     "2026-08-30",
		Extracted:   10,
		Transformed: 10,
		CountsMatch: true,
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Minute),
	}
	payload, err := json.Marshal(status)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO harvest_runs").
		WithArgs(
			status.RunID,
			status.RunDate,
			status.Extracted,
			status.Transformed,
			status.CountsMatch,
			status.StartedAt,
			status.FinishedAt,
			payload,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Record(context.Background(), status))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRequiresRunID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "harvest_runs")
	require.NoError(t, err)

	require.Error(t, store.Record(context.Background(), harvest.RunStatus{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "runs; DROP TABLE runs")
	require.ErrorContains(t, err, "invalid table name")
}
