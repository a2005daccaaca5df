package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"activation-api/internal/repository"
	"activation-api/internal/service"
)

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(_ context.Context) error {
	return m.err
}

type mockDiagnostics struct {
	tableExists bool
	tableErr    error
	count       int64
	countErr    error
	sample      []repository.MemberSummary
	columns     []repository.Column

	countCalls int
}

func (m *mockDiagnostics) TableExists(_ context.Context) (bool, error) {
	return m.tableExists, m.tableErr
}

func (m *mockDiagnostics) Count(_ context.Context) (int64, error) {
	m.countCalls++
	return m.count, m.countErr
}

func (m *mockDiagnostics) Sample(_ context.Context, _ int) ([]repository.MemberSummary, error) {
	return m.sample, nil
}

func (m *mockDiagnostics) Columns(_ context.Context) ([]repository.Column, error) {
	return m.columns, nil
}

func setupSystemRouter(db Pinger, diag repository.StoreDiagnostics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	regSvc := service.NewRegistrationService(logger, newMockMemberRepo(), &mockSender{}, nil)
	jwtSvc := service.NewJWTService("test-secret")
	authH := NewAuthHandler(logger, regSvc, jwtSvc, &mockSender{}, EmailSettings{}, false)
	sysH := NewSystemHandler(logger, db, diag, false)
	return NewRouter(logger, authH, sysH)
}

func dbSection(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	section, ok := body["database"].(map[string]any)
	if !ok {
		t.Fatalf("expected database section, got %v", body)
	}
	return section
}

func TestDBStatus_Ready(t *testing.T) {
	diag := &mockDiagnostics{
		tableExists: true,
		count:       2,
		sample: []repository.MemberSummary{
			{UniqueID: "U1", FullName: "Ana Pérez", Email: "a@x.com", IsRegistered: true},
			{UniqueID: "U2", Email: "b@x.com"},
		},
		columns: []repository.Column{
			{Name: "id", DataType: "uuid", IsNullable: "NO"},
			{Name: "otp_code", DataType: "text", IsNullable: "YES"},
		},
	}
	r := setupSystemRouter(mockPinger{}, diag)

	rec := performRequest(r, http.MethodGet, "/db-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["status"] != "connected" {
		t.Fatalf("expected status connected, got %v", body["status"])
	}
	database := dbSection(t, body)
	if database["connected"] != true || database["tableExists"] != true {
		t.Fatalf("unexpected database section %v", database)
	}
	if database["userCount"] != float64(2) {
		t.Fatalf("expected userCount 2, got %v", database["userCount"])
	}
	sampleUsers, ok := database["sampleUsers"].([]any)
	if !ok || len(sampleUsers) != 2 {
		t.Fatalf("expected 2 sample users, got %v", database["sampleUsers"])
	}
	first, _ := sampleUsers[0].(map[string]any)
	if first["uniqueId"] != "U1" || first["isRegistered"] != true {
		t.Fatalf("unexpected sample user %v", first)
	}
	structure, ok := database["tableStructure"].([]any)
	if !ok || len(structure) != 2 {
		t.Fatalf("expected table structure, got %v", database["tableStructure"])
	}
	recs, ok := body["recommendations"].([]any)
	if !ok || len(recs) != 1 || recs[0] != "Database is ready" {
		t.Fatalf("unexpected recommendations %v", body["recommendations"])
	}
}

func TestDBStatus_TableMissing(t *testing.T) {
	diag := &mockDiagnostics{tableExists: false}
	r := setupSystemRouter(mockPinger{}, diag)

	rec := performRequest(r, http.MethodGet, "/db-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	database := dbSection(t, body)
	if database["tableExists"] != false {
		t.Fatalf("expected tableExists false, got %v", database)
	}
	// Sin tabla no se consultan conteo ni muestra.
	if diag.countCalls != 0 {
		t.Fatalf("expected no count query, got %d", diag.countCalls)
	}
	sampleUsers, ok := database["sampleUsers"].([]any)
	if !ok || len(sampleUsers) != 0 {
		t.Fatalf("expected empty sampleUsers list, got %v", database["sampleUsers"])
	}
	recs, _ := body["recommendations"].([]any)
	if len(recs) == 0 || recs[0] != "Apply the schema in migrations/001_members.sql" {
		t.Fatalf("unexpected recommendations %v", body["recommendations"])
	}
}

func TestDBStatus_EmptyTable(t *testing.T) {
	diag := &mockDiagnostics{
		tableExists: true,
		count:       0,
		sample:      []repository.MemberSummary{},
		columns:     []repository.Column{{Name: "id", DataType: "uuid", IsNullable: "NO"}},
	}
	r := setupSystemRouter(mockPinger{}, diag)

	rec := performRequest(r, http.MethodGet, "/db-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	recs, _ := body["recommendations"].([]any)
	if len(recs) == 0 || recs[0] != "Table exists but no members found" {
		t.Fatalf("unexpected recommendations %v", body["recommendations"])
	}
}

func TestDBStatus_PingFails(t *testing.T) {
	r := setupSystemRouter(mockPinger{err: errors.New("connection refused")}, &mockDiagnostics{})

	rec := performRequest(r, http.MethodGet, "/db-status", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Fatalf("expected status error, got %v", body["status"])
	}
	database := dbSection(t, body)
	if database["connected"] != false {
		t.Fatalf("expected connected false, got %v", database)
	}
	// Fuera de producción se incluye el detalle del error.
	if body["error"] != "connection refused" {
		t.Fatalf("expected error detail, got %v", body["error"])
	}
}

func TestDBStatus_DiagnosticQueryFails(t *testing.T) {
	diag := &mockDiagnostics{tableErr: errors.New("permission denied")}
	r := setupSystemRouter(mockPinger{}, diag)

	rec := performRequest(r, http.MethodGet, "/db-status", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Fatalf("expected status error, got %v", body["status"])
	}
	database := dbSection(t, body)
	if database["connected"] != true {
		t.Fatalf("expected connected true when only the query fails, got %v", database)
	}
}
