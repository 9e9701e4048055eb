package httphandler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/brmorais/cadastrohub/internal/adapter/driving/http"
	"github.com/brmorais/cadastrohub/internal/application"
	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeSecrets serves the user directory secret.
type fakeSecrets struct{ value string }

func (f *fakeSecrets) Resolve(ctx context.Context, secretID string) (string, error) {
	return f.value, nil
}

// fakeRecordStore serves canned tables and records mutations.
type fakeRecordStore struct {
	tables map[string]model.Table

	fetchErr  error
	appendErr error

	appendedSheet  string
	appendedRecord model.Record
	updatedSheet   string
	updatedIndex   int
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
	f.updatedSheet = sheetName
	f.updatedIndex = logicalIndex
	return nil
}

// fakeSessionStore keeps sessions in memory.
type fakeSessionStore struct{ sessions map[string]model.Session }

func (f *fakeSessionStore) Put(ctx context.Context, s model.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return model.Session{}, driven.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

// newTestAPI wires the services with fakes and returns the routed handler.
func newTestAPI(t *testing.T, store *fakeRecordStore) http.Handler {
	t.Helper()

	logger := testLogger()
	directory, err := application.LoadUserDirectory(
		context.Background(),
		&fakeSecrets{value: `{"Lara":"9096"}`},
		"USER_CREDENTIALS",
		nil,
		logger,
	)
	require.NoError(t, err)

	gate := application.NewSessionGate(directory, &fakeSessionStore{sessions: map[string]model.Session{}}, time.Hour, logger)
	regSvc := application.NewRegistrationService(store, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(gate, regSvc, logger))
	return httphandler.ApplyMiddleware(mux, logger)
}

// login performs a login and returns the session cookie.
func login(t *testing.T, api http.Handler) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"username":"Lara","password":"9096"}`))
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == httphandler.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

func TestHealth_NoAuthRequired(t *testing.T) {
	api := newTestAPI(t, &fakeRecordStore{})

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_FailureIsGeneric(t *testing.T) {
	api := newTestAPI(t, &fakeRecordStore{})

	bodyFor := func(payload string) string {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		return rec.Body.String()
	}

	unknownUser := bodyFor(`{"username":"Intruder","password":"9096"}`)
	wrongPassword := bodyFor(`{"username":"Lara","password":"wrong"}`)

	assert.Equal(t, unknownUser, wrongPassword,
		"unknown user and wrong password must produce identical responses")
}

func TestRecords_RequireSession(t *testing.T) {
	api := newTestAPI(t, &fakeRecordStore{})

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records/mei", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateMEI_EndToEnd(t *testing.T) {
	store := &fakeRecordStore{}
	api := newTestAPI(t, store)
	cookie := login(t, api)

	body := `{
		"company_name": "Padaria Boa Massa",
		"responsible_name": "Edy Souza",
		"phone": "11 99999-0000",
		"email": "edy@example.com",
		"portal_password": "s3nha",
		"state": "SP",
		"cnpj": "11.222.333/0001-81",
		"cpf": "123.456.789-09",
		"status": "Ativo"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records/mei", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Sheet1", store.appendedSheet)
	require.Len(t, store.appendedRecord, 9)
	assert.Equal(t, "11.222.333/0001-81", store.appendedRecord[6])
	assert.Equal(t, "123.456.789-09", store.appendedRecord[7])
}

func TestCreateMEI_ValidationError(t *testing.T) {
	store := &fakeRecordStore{}
	api := newTestAPI(t, store)
	cookie := login(t, api)

	body := `{"company_name":"Padaria","responsible_name":"Edy","state":"SP","cnpj":"123","cpf":"123.456.789-09","status":"Ativo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records/mei", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CNPJ", resp.Field)
	assert.Empty(t, store.appendedSheet)
}

func TestCreateMEI_RemoteWriteFailure(t *testing.T) {
	store := &fakeRecordStore{
		appendErr: &driven.RemoteError{Op: "append", Sheet: "Sheet1", Err: context.DeadlineExceeded},
	}
	api := newTestAPI(t, store)
	cookie := login(t, api)

	body := `{
		"company_name": "Padaria Boa Massa",
		"responsible_name": "Edy Souza",
		"state": "SP",
		"cnpj": "11.222.333/0001-81",
		"cpf": "123.456.789-09",
		"status": "Ativo"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records/mei", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code, "write failures surface, they don't crash")
}

func TestListRecords_Degraded(t *testing.T) {
	store := &fakeRecordStore{
		fetchErr: &driven.RemoteError{Op: "fetch", Sheet: "Sheet1", Err: context.DeadlineExceeded},
	}
	api := newTestAPI(t, store)
	cookie := login(t, api)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/mei", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Records  [][]string `json:"records"`
		Degraded bool       `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Records)
}

func TestUpdateRecord_SchemaMismatch(t *testing.T) {
	store := &fakeRecordStore{
		tables: map[string]model.Table{
			"Sheet2": model.NewTable([][]string{
				{"Nome Completo", "Telefone"},
				{"Camilla", "21 98888-1111"},
			}),
		},
	}
	api := newTestAPI(t, store)
	cookie := login(t, api)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/records/pf/0", strings.NewReader(`{"values":["only one"]}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, store.updatedSheet)
}

func TestUpdateRecord_UnknownKind(t *testing.T) {
	api := newTestAPI(t, &fakeRecordStore{})
	cookie := login(t, api)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/records/cnpj/0", strings.NewReader(`{"values":["x"]}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
