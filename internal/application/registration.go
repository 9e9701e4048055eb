package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// ErrRecordNotFound indicates an update aimed at a logical row index beyond
// the sheet's current data rows.
var ErrRecordNotFound = errors.New("record not found at the given index")

// ValidationError reports a field-level input problem. The message is
// user-facing and rendered inline next to the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MEIInput is the registration form for a micro-enterprise record.
type MEIInput struct {
	CompanyName     string
	ResponsibleName string
	Phone           string
	Email           string
	PortalPassword  string
	State           string
	CNPJ            string
	CPF             string
	Status          string
}

// record orders the input to match MEISchema.
func (in MEIInput) record() model.Record {
	return model.Record{
		in.CompanyName,
		in.ResponsibleName,
		in.Phone,
		in.Email,
		in.PortalPassword,
		in.State,
		in.CNPJ,
		in.CPF,
		in.Status,
	}
}

// PFInput is the registration form for an individual-person record
// (extended schema).
type PFInput struct {
	FullName       string
	Phone          string
	Email          string
	CPF            string
	State          string
	RG             string
	PortalPassword string
	Address        string
	City           string
	PostalCode     string
	PixKey         string
	OwnsProperty   string
	OwnsVehicle    string
	HasDependents  string
}

// record orders the input to match PFSchema.
func (in PFInput) record() model.Record {
	return model.Record{
		in.FullName,
		in.Phone,
		in.Email,
		in.CPF,
		in.State,
		in.RG,
		in.PortalPassword,
		in.Address,
		in.City,
		in.PostalCode,
		in.PixKey,
		in.OwnsProperty,
		in.OwnsVehicle,
		in.HasDependents,
	}
}

// RegistrationService validates registration input and moves records through
// the RecordStore. Reads fail soft: a transport failure browsing records
// yields an empty table plus a degraded flag, never an error page.
type RegistrationService struct {
	store  driven.RecordStore
	logger *slog.Logger
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(store driven.RecordStore, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{store: store, logger: logger}
}

// RegisterMEI validates and appends a micro-enterprise registration.
func (s *RegistrationService) RegisterMEI(ctx context.Context, in MEIInput) error {
	if in.CompanyName == "" {
		return &ValidationError{Field: "Nome da Empresa", Message: "obrigatório"}
	}
	if !model.IsValidCNPJ(in.CNPJ) {
		return &ValidationError{Field: "CNPJ", Message: "CNPJ inválido"}
	}
	if !model.IsValidCPF(in.CPF) {
		return &ValidationError{Field: "CPF", Message: "CPF inválido"}
	}
	if !model.IsUF(in.State) {
		return &ValidationError{Field: "Estado", Message: "estado inválido"}
	}
	if !validStatus(in.Status) {
		return &ValidationError{Field: "Status MEI", Message: "status inválido"}
	}

	return s.store.Append(ctx, model.MEISchema.SheetName, in.record())
}

// RegisterPF validates and appends an individual-person registration.
func (s *RegistrationService) RegisterPF(ctx context.Context, in PFInput) error {
	if in.FullName == "" {
		return &ValidationError{Field: "Nome Completo", Message: "obrigatório"}
	}
	if !model.IsValidCPF(in.CPF) {
		return &ValidationError{Field: "CPF", Message: "CPF inválido"}
	}
	if !model.IsUF(in.State) {
		return &ValidationError{Field: "Estado", Message: "estado inválido"}
	}

	return s.store.Append(ctx, model.PFSchema.SheetName, in.record())
}

// List materializes the sheet for the given kind. A remote read failure
// degrades to an empty table with degraded=true; only an unknown kind is an
// error.
func (s *RegistrationService) List(ctx context.Context, kind model.RecordKind) (table model.Table, degraded bool, err error) {
	schema, ok := model.SchemaFor(kind)
	if !ok {
		return model.Table{}, false, fmt.Errorf("unknown record kind %q", kind)
	}

	table, fetchErr := s.store.Fetch(ctx, schema.SheetName)
	if fetchErr != nil {
		s.logger.Warn("sheet fetch failed, showing empty table", "sheet", schema.SheetName, "error", fetchErr)
		return model.Table{}, true, nil
	}
	return table, false, nil
}

// Update overwrites the record at logicalIndex. The record length must match
// the sheet's current column count (driven.ErrSchemaMismatch otherwise), and
// the index must address an existing data row. The header is re-fetched
// before every update so the invariant holds against the sheet as it is now,
// not as it was when the edit form was rendered.
func (s *RegistrationService) Update(ctx context.Context, kind model.RecordKind, logicalIndex int, values []string) error {
	schema, ok := model.SchemaFor(kind)
	if !ok {
		return fmt.Errorf("unknown record kind %q", kind)
	}
	if logicalIndex < 0 {
		return fmt.Errorf("%w: negative index %d", ErrRecordNotFound, logicalIndex)
	}

	table, err := s.store.Fetch(ctx, schema.SheetName)
	if err != nil {
		return fmt.Errorf("verify sheet before update: %w", err)
	}
	if logicalIndex >= len(table.Records) {
		return fmt.Errorf("%w: index %d, sheet has %d records", ErrRecordNotFound, logicalIndex, len(table.Records))
	}
	if len(values) != len(table.Headers) {
		return fmt.Errorf("%w: record has %d fields, sheet has %d columns",
			driven.ErrSchemaMismatch, len(values), len(table.Headers))
	}

	return s.store.Update(ctx, schema.SheetName, logicalIndex, model.Record(values))
}

func validStatus(status string) bool {
	for _, s := range model.MEIStatuses {
		if s == status {
			return true
		}
	}
	return false
}
