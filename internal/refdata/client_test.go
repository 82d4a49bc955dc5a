package refdata

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/store/memory"
)

type fakeEngine struct {
	states    map[string][]harvest.QueryState
	locations map[string]string
	submitted []string
	polls     map[string]int
	submitErr error
}

func (e *fakeEngine) Submit(_ context.Context, query, _ string) (string, error) {
	if e.submitErr != nil {
		return "", e.submitErr
	}
	e.submitted = append(e.submitted, query)
	switch {
	case strings.Contains(query, "rut_cliente,"):
		return "job-companies", nil
	default:
		return "job-staff", nil
	}
}

func (e *fakeEngine) Poll(_ context.Context, jobID string) (harvest.QueryState, error) {
	if e.polls == nil {
		e.polls = make(map[string]int)
	}
	states := e.states[jobID]
	i := e.polls[jobID]
	if i >= len(states) {
		i = len(states) - 1
	}
	e.polls[jobID]++
	return states[i], nil
}

func (e *fakeEngine) ResultLocation(_ context.Context, jobID string) (string, error) {
	return e.locations[jobID], nil
}

func testConfig() Config {
	return Config{
		CompaniesSchema: "bd_in_tablas_generales",
		CompaniesTable:  "tbl_maestro_empresas",
		StaffSchema:     "bd_dlk_bcc_tablas_generales",
		StaffTable:      "tbl_base_funcionarios",
		PollInterval:    time.Millisecond,
		Budget:          time.Second,
	}
}

func TestFetchRenamesWarehouseColumns(t *testing.T) {
	t.Parallel()

	objects := memory.New()
	_, err := objects.Put(context.Background(), "results/companies.csv", "text/csv", []byte(
		"rut_cliente,rut_cliente_dv,segmento,plataforma,ejec_cod,fecha_proceso\n"+
			"76123456,7,PYME,DIGITAL,E100,2026-08-28\n"))
	require.NoError(t, err)
	_, err = objects.Put(context.Background(), "results/staff.csv", "text/csv", []byte(
		"rut_funcionario,rut_funcionario_dv,nombre_funcionario,nombre_puesto,correo,dependencia,fecha_carga_dl\n"+
			"E100,9,ANA SOTO,EJECUTIVO,ana@example.cl,SANTIAGO,2026-08-27\n"))
	require.NoError(t, err)

	engine := &fakeEngine{
		states: map[string][]harvest.QueryState{
			"job-companies": {harvest.QueryStateRunning, harvest.QueryStateSucceeded},
			"job-staff":     {harvest.QueryStateSucceeded},
		},
		locations: map[string]string{
			"job-companies": "results/companies.csv",
			"job-staff":     "results/staff.csv",
		},
	}

	tables, err := New(engine, objects, testConfig(), zap.NewNop()).Fetch(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, tables.Companies.Len())
	require.Equal(t, "76123456", tables.Companies.Rows[0][ColIdentifier])
	require.Equal(t, "E100", tables.Companies.Rows[0][ColAccountOwnerCode])
	require.Equal(t, 1, tables.Staff.Len())
	require.Equal(t, "ana@example.cl", tables.Staff.Rows[0][ColStaffEmail])
	require.Equal(t, "E100", tables.Staff.Rows[0][ColStaffID])
}

func TestFetchQueriesNameConfiguredTables(t *testing.T) {
	t.Parallel()

	objects := memory.New()
	_, err := objects.Put(context.Background(), "r.csv", "text/csv", []byte("rut_cliente\n"))
	require.NoError(t, err)

	engine := &fakeEngine{
		states: map[string][]harvest.QueryState{
			"job-companies": {harvest.QueryStateSucceeded},
			"job-staff":     {harvest.QueryStateSucceeded},
		},
		locations: map[string]string{"job-companies": "r.csv", "job-staff": "r.csv"},
	}

	_, err = New(engine, objects, testConfig(), zap.NewNop()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, engine.submitted, 2)
	require.Contains(t, engine.submitted[0], `"bd_in_tablas_generales"."tbl_maestro_empresas"`)
	require.Contains(t, engine.submitted[1], `"bd_dlk_bcc_tablas_generales"."tbl_base_funcionarios"`)
}

func TestFetchFailedQueryYieldsEmptyTable(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		states: map[string][]harvest.QueryState{
			"job-companies": {harvest.QueryStateFailed},
			"job-staff":     {harvest.QueryStateCancelled},
		},
	}

	tables, err := New(engine, memory.New(), testConfig(), zap.NewNop()).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, tables.Companies.Len())
	require.Equal(t, CompaniesColumns, tables.Companies.Columns)
	require.Equal(t, 0, tables.Staff.Len())
	require.Equal(t, StaffColumns, tables.Staff.Columns)
}

func TestFetchSubmitErrorPropagates(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{submitErr: errors.New("engine offline")}
	_, err := New(engine, memory.New(), testConfig(), zap.NewNop()).Fetch(context.Background())
	require.ErrorContains(t, err, "engine offline")
}

func TestAwaitGivesUpAfterBudget(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		states: map[string][]harvest.QueryState{
			"job-companies": {harvest.QueryStateRunning},
			"job-staff":     {harvest.QueryStateRunning},
		},
	}
	cfg := testConfig()
	cfg.Budget = 20 * time.Millisecond

	_, err := New(engine, memory.New(), cfg, zap.NewNop()).Fetch(context.Background())
	require.ErrorContains(t, err, "did not finish in time")
}
