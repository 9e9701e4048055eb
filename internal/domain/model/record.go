package model

import "strings"

// RecordKind identifies which registration schema a record belongs to.
type RecordKind string

const (
	// KindMEI is a micro-enterprise (MEI) registration.
	KindMEI RecordKind = "mei"
	// KindPF is an individual-person (Pessoa Física) registration.
	KindPF RecordKind = "pf"
)

// Record is one row of a registration sheet: an ordered sequence of field
// values whose count and order must match the sheet's header row.
type Record []string

// Schema describes the canonical column layout of a registration sheet.
type Schema struct {
	Kind      RecordKind
	SheetName string
	Fields    []string
}

// Columns returns the number of fields in the schema.
func (s Schema) Columns() int { return len(s.Fields) }

// MEISchema is the canonical MEI registration layout, backed by Sheet1.
var MEISchema = Schema{
	Kind:      KindMEI,
	SheetName: "Sheet1",
	Fields: []string{
		"Nome da Empresa",
		"Nome do Responsável",
		"Telefone",
		"Email",
		"Senha Gov.br",
		"Estado",
		"CNPJ",
		"CPF",
		"Status MEI",
	},
}

// PFSchema is the canonical Pessoa Física registration layout, backed by
// Sheet2. This is the extended variant; the short five-field form is a strict
// prefix of it.
var PFSchema = Schema{
	Kind:      KindPF,
	SheetName: "Sheet2",
	Fields: []string{
		"Nome Completo",
		"Telefone",
		"Email",
		"CPF",
		"Estado",
		"RG",
		"Senha Gov.br",
		"Endereço",
		"Cidade",
		"CEP",
		"Chave Pix",
		"Possui Imóvel",
		"Possui Veículo",
		"Possui Dependentes",
	},
}

// SchemaFor returns the canonical schema for the given kind.
// Returns (Schema{}, false) for an unknown kind.
func SchemaFor(kind RecordKind) (Schema, bool) {
	switch kind {
	case KindMEI:
		return MEISchema, true
	case KindPF:
		return PFSchema, true
	}
	return Schema{}, false
}

// MEIStatuses are the accepted values for the "Status MEI" field.
var MEIStatuses = []string{"Ativo", "Baixado"}

// UFCodes lists the 27 Brazilian federative unit codes used by the Estado field.
var UFCodes = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA",
	"MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI", "RJ", "RN",
	"RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// IsUF reports whether code is a valid federative unit code.
func IsUF(code string) bool {
	for _, uf := range UFCodes {
		if uf == code {
			return true
		}
	}
	return false
}

// Table is the materialized contents of a registration sheet: a trimmed
// header row plus zero or more data records. A sheet with no rows beyond the
// header materializes as an empty (but valid) Table.
type Table struct {
	Headers []string
	Records []Record
}

// Empty reports whether the table holds no data records.
func (t Table) Empty() bool { return len(t.Records) == 0 }

// NewTable builds a Table from raw sheet values. Row 1 is the header
// (surrounding whitespace trimmed); rows 2..N are records. Fewer than two
// rows yields an empty table.
func NewTable(values [][]string) Table {
	if len(values) < 2 {
		return Table{}
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]Record, 0, len(values)-1)
	for _, row := range values[1:] {
		records = append(records, Record(row))
	}

	return Table{Headers: headers, Records: records}
}

// Get returns the value of the named column in the given record, or "" when
// the column is absent or the record is shorter than the header.
func (t Table) Get(rec Record, column string) string {
	for i, h := range t.Headers {
		if h == column && i < len(rec) {
			return rec[i]
		}
	}
	return ""
}
