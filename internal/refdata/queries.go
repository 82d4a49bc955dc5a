package refdata

import "fmt"

// Canonical column names the enrichment engine joins on. The warehouse keeps
// its own naming; the client renames on fetch so nothing downstream depends on
// warehouse schema churn.
const (
	ColIdentifier       = "identifier"
	ColCheckDigit       = "identifier_check_digit"
	ColSegment          = "segment"
	ColPlatform         = "platform"
	ColAccountOwnerCode = "account_owner_code"
	ColProcessDate      = "process_date"

	ColStaffID         = "staff_id"
	ColStaffCheckDigit = "staff_check_digit"
	ColStaffName       = "staff_name"
	ColStaffRole       = "staff_role"
	ColStaffEmail      = "staff_email"
	ColStaffUnit       = "staff_unit"
	ColLoadDate        = "load_date"
)

// companiesRename maps warehouse company-master columns to canonical names.
var companiesRename = map[string]string{
	"rut_cliente":    ColIdentifier,
	"rut_cliente_dv": ColCheckDigit,
	"segmento":       ColSegment,
	"plataforma":     ColPlatform,
	"ejec_cod":       ColAccountOwnerCode,
	"fecha_proceso":  ColProcessDate,
}

// staffRename maps warehouse staff-base columns to canonical names.
var staffRename = map[string]string{
	"rut_funcionario":    ColStaffID,
	"rut_funcionario_dv": ColStaffCheckDigit,
	"nombre_funcionario": ColStaffName,
	"nombre_puesto":      ColStaffRole,
	"correo":             ColStaffEmail,
	"dependencia":        ColStaffUnit,
	"fecha_carga_dl":     ColLoadDate,
}

// CompaniesColumns is the canonical column order of the company reference table.
var CompaniesColumns = []string{
	ColIdentifier, ColCheckDigit, ColSegment, ColPlatform, ColAccountOwnerCode, ColProcessDate,
}

// StaffColumns is the canonical column order of the staff reference table.
var StaffColumns = []string{
	ColStaffID, ColStaffCheckDigit, ColStaffName, ColStaffRole, ColStaffEmail, ColStaffUnit, ColLoadDate,
}

func companiesQuery(schema, tbl string) string {
	return fmt.Sprintf(
		`SELECT rut_cliente, rut_cliente_dv, segmento, plataforma, ejec_cod, fecha_proceso FROM %q.%q`,
		schema, tbl)
}

func staffQuery(schema, tbl string) string {
	return fmt.Sprintf(
		`SELECT rut_funcionario, rut_funcionario_dv, nombre_funcionario, nombre_puesto, correo, dependencia, fecha_carga_dl FROM %q.%q`,
		schema, tbl)
}
