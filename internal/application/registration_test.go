package application

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeRecordStore records calls and serves canned tables per sheet.
type fakeRecordStore struct {
	tables map[string]model.Table

	fetchErr  error
	appendErr error
	updateErr error

	appendedSheet  string
	appendedRecord model.Record
	updatedSheet   string
	updatedIndex   int
	updatedRecord  model.Record
}

func (f *fakeRecordStore) Append(ctx context.Context, sheetName string, record model.Record) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appendedSheet = sheetName
	f.appendedRecord = record
	return nil
}

func (f *fakeRecordStore) Fetch(ctx context.Context, sheetName string) (model.Table, error) {
	if f.fetchErr != nil {
		return model.Table{}, f.fetchErr
	}
	return f.tables[sheetName], nil
}

func (f *fakeRecordStore) Update(ctx context.Context, sheetName string, logicalIndex int, record model.Record) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedSheet = sheetName
	f.updatedIndex = logicalIndex
	f.updatedRecord = record
	return nil
}

func validMEI() MEIInput {
	return MEIInput{
		CompanyName:     "Padaria Boa Massa",
		ResponsibleName: "Edy Souza",
		Phone:           "11 99999-0000",
		Email:           "edy@example.com",
		PortalPassword:  "s3nha",
		State:           "SP",
		CNPJ:            "11.222.333/0001-81",
		CPF:             "123.456.789-09",
		Status:          "Ativo",
	}
}

func TestRegisterMEI_AppendsOrderedRow(t *testing.T) {
	store := &fakeRecordStore{}
	svc := NewRegistrationService(store, testLogger())

	err := svc.RegisterMEI(context.Background(), validMEI())

	require.NoError(t, err)
	assert.Equal(t, "Sheet1", store.appendedSheet)
	require.Len(t, store.appendedRecord, 9)
	assert.Equal(t, model.Record{
		"Padaria Boa Massa", "Edy Souza", "11 99999-0000", "edy@example.com",
		"s3nha", "SP", "11.222.333/0001-81", "123.456.789-09", "Ativo",
	}, store.appendedRecord)
}

func TestRegisterMEI_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MEIInput)
		field  string
	}{
		{name: "bad CNPJ", mutate: func(in *MEIInput) { in.CNPJ = "11.222.333/0001" }, field: "CNPJ"},
		{name: "CPF with 12 digits", mutate: func(in *MEIInput) { in.CPF = "123456789012" }, field: "CPF"},
		{name: "unknown state", mutate: func(in *MEIInput) { in.State = "XX" }, field: "Estado"},
		{name: "unknown status", mutate: func(in *MEIInput) { in.Status = "Suspenso" }, field: "Status MEI"},
		{name: "missing company name", mutate: func(in *MEIInput) { in.CompanyName = "" }, field: "Nome da Empresa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRecordStore{}
			svc := NewRegistrationService(store, testLogger())

			in := validMEI()
			tt.mutate(&in)
			err := svc.RegisterMEI(context.Background(), in)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, store.appendedSheet, "validation failure must not reach the store")
		})
	}
}

func TestRegisterPF_AppendsFourteenFields(t *testing.T) {
	store := &fakeRecordStore{}
	svc := NewRegistrationService(store, testLogger())

	err := svc.RegisterPF(context.Background(), PFInput{
		FullName: "Camilla Reis",
		Phone:    "21 98888-1111",
		Email:    "camilla@example.com",
		CPF:      "123.456.789-09",
		State:    "RJ",
		City:     "Niterói",
	})

	require.NoError(t, err)
	assert.Equal(t, "Sheet2", store.appendedSheet)
	require.Len(t, store.appendedRecord, 14)
	assert.Equal(t, "Camilla Reis", store.appendedRecord[0])
	assert.Equal(t, "RJ", store.appendedRecord[4])
	assert.Equal(t, "Niterói", store.appendedRecord[8])
}

func TestRegisterPF_InvalidCPF(t *testing.T) {
	store := &fakeRecordStore{}
	svc := NewRegistrationService(store, testLogger())

	err := svc.RegisterPF(context.Background(), PFInput{
		FullName: "Camilla Reis",
		CPF:      "123",
		State:    "RJ",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "CPF", vErr.Field)
}

func TestList_FailsSoftOnRemoteError(t *testing.T) {
	store := &fakeRecordStore{
		fetchErr: &driven.RemoteError{Op: "fetch", Sheet: "Sheet1", Err: context.DeadlineExceeded},
	}
	svc := NewRegistrationService(store, testLogger())

	table, degraded, err := svc.List(context.Background(), model.KindMEI)

	require.NoError(t, err, "read failures degrade, they never error")
	assert.True(t, degraded)
	assert.True(t, table.Empty())
}

func TestList_UnknownKind(t *testing.T) {
	svc := NewRegistrationService(&fakeRecordStore{}, testLogger())

	_, _, err := svc.List(context.Background(), model.RecordKind("cnpj"))
	assert.Error(t, err)
}

func TestUpdate_HappyPath(t *testing.T) {
	store := &fakeRecordStore{
		tables: map[string]model.Table{
			"Sheet1": model.NewTable([][]string{
				{"A", "B", "C"},
				{"1", "2", "3"},
				{"4", "5", "6"},
			}),
		},
	}
	svc := NewRegistrationService(store, testLogger())

	err := svc.Update(context.Background(), model.KindMEI, 1, []string{"7", "8", "9"})

	require.NoError(t, err)
	assert.Equal(t, "Sheet1", store.updatedSheet)
	assert.Equal(t, 1, store.updatedIndex)
	assert.Equal(t, model.Record{"7", "8", "9"}, store.updatedRecord)
}

func TestUpdate_SchemaMismatchRejected(t *testing.T) {
	store := &fakeRecordStore{
		tables: map[string]model.Table{
			"Sheet1": model.NewTable([][]string{
				{"A", "B", "C"},
				{"1", "2", "3"},
			}),
		},
	}
	svc := NewRegistrationService(store, testLogger())

	err := svc.Update(context.Background(), model.KindMEI, 0, []string{"only", "two"})

	assert.ErrorIs(t, err, driven.ErrSchemaMismatch)
	assert.Empty(t, store.updatedSheet, "mismatched update must never be applied")
}

func TestUpdate_IndexOutOfRange(t *testing.T) {
	store := &fakeRecordStore{
		tables: map[string]model.Table{
			"Sheet1": model.NewTable([][]string{
				{"A"},
				{"1"},
			}),
		},
	}
	svc := NewRegistrationService(store, testLogger())

	assert.ErrorIs(t, svc.Update(context.Background(), model.KindMEI, 5, []string{"x"}), ErrRecordNotFound)
	assert.ErrorIs(t, svc.Update(context.Background(), model.KindMEI, -1, []string{"x"}), ErrRecordNotFound)
}

func TestUpdate_FetchFailureBlocksUpdate(t *testing.T) {
	store := &fakeRecordStore{
		fetchErr: &driven.RemoteError{Op: "fetch", Sheet: "Sheet1", Err: context.DeadlineExceeded},
	}
	svc := NewRegistrationService(store, testLogger())

	err := svc.Update(context.Background(), model.KindMEI, 0, []string{"x"})

	require.Error(t, err, "cannot verify the column invariant, so the update is refused")
	assert.Empty(t, store.updatedSheet)
}
