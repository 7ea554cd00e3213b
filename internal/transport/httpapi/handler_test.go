package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/service"
	"github.com/garyjia/payroll-control/internal/domain/entity"
	domainwf "github.com/garyjia/payroll-control/internal/domain/workflow"
)

// stubService serves canned workflow results for handler tests
type stubService struct {
	run     *entity.PayrollRun
	runs    []*entity.PayrollRun
	entries []*entity.AuditEntry
	err     error

	lastDecision string
	lastNote     *entity.ReviewNote
	lastLines    []entity.PayLine
}

func (s *stubService) CreateRun(ctx context.Context, id string, exceptions []entity.PayrollException) (*entity.PayrollRun, error) {
	return s.run, s.err
}

func (s *stubService) InitiateRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	return s.run, s.err
}

func (s *stubService) IngestPayLines(ctx context.Context, id string, lines []entity.PayLine) (*entity.PayrollRun, error) {
	s.lastLines = lines
	return s.run, s.err
}

func (s *stubService) PublishForReview(ctx context.Context, id string) (*entity.PayrollRun, error) {
	return s.run, s.err
}

func (s *stubService) ManagerDecision(ctx context.Context, id string, result string, note *entity.ReviewNote) (*entity.PayrollRun, error) {
	s.lastDecision = result
	s.lastNote = note
	return s.run, s.err
}

func (s *stubService) FinanceDecision(ctx context.Context, id string, result string, note *entity.ReviewNote) (*entity.PayrollRun, error) {
	s.lastDecision = result
	s.lastNote = note
	return s.run, s.err
}

func (s *stubService) LockRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	return s.run, s.err
}

func (s *stubService) UnfreezeRun(ctx context.Context, id string, justification string) (*entity.PayrollRun, error) {
	return s.run, s.err
}

func (s *stubService) GetRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	return s.run, s.err
}

func (s *stubService) ListRuns(ctx context.Context, limit, offset int) ([]*entity.PayrollRun, error) {
	return s.runs, s.err
}

func (s *stubService) AuditTrail(ctx context.Context, id string) ([]*entity.AuditEntry, error) {
	return s.entries, s.err
}

func (s *stubService) ResolveException(ctx context.Context, id string, employeeID, code string) (*entity.PayrollRun, error) {
	return s.run, s.err
}

var _ service.WorkflowService = (*stubService)(nil)

func newTestRouter(svc service.WorkflowService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, zap.NewNop()).Register(router)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRunReturnsRun(t *testing.T) {
	svc := &stubService{run: &entity.PayrollRun{ID: "run-1", Status: entity.StatusDraftGenerated}}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodGet, "/payroll-workflow/run-1", "")

	require.Equal(t, http.StatusOK, w.Code)

	var got entity.PayrollRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, entity.StatusDraftGenerated, got.Status)
}

func TestUnknownRunReturns404(t *testing.T) {
	router := newTestRouter(&stubService{})

	w := doRequest(router, http.MethodGet, "/payroll-workflow/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/payroll-workflow/ghost/publish", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidTransitionReturns409(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("run run-1: %w", domainwf.ErrInvalidTransition)}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/lock", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDuplicateCreateReturns409(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("run run-1: %w", service.ErrRunExists)}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/create", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateRunReturns201(t *testing.T) {
	svc := &stubService{run: &entity.PayrollRun{ID: "run-1", Status: entity.StatusDraftGenerated}}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/create", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestManagerDecisionPassesResultAndNote(t *testing.T) {
	svc := &stubService{run: &entity.PayrollRun{ID: "run-1", Status: entity.StatusWaitingFinanceApproval}}
	router := newTestRouter(svc)

	body := `{"result":"APPROVED","note":{"author_id":"mgr-7","note":"looks right"}}`
	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/manager", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.ResultApproved, svc.lastDecision)
	require.NotNil(t, svc.lastNote)
	assert.Equal(t, "mgr-7", svc.lastNote.AuthorID)
	assert.Equal(t, entity.RoleManager, svc.lastNote.Role)
}

func TestUnknownDecisionReturns400(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("run run-1: %w: %q", service.ErrUnknownDecision, "MAYBE")}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/finance", `{"result":"MAYBE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnfreezeRequiresJustificationField(t *testing.T) {
	svc := &stubService{run: &entity.PayrollRun{ID: "run-1", Status: entity.StatusUnfrozen}}
	router := newTestRouter(svc)

	// Binding rejects the missing field before the service is reached
	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/unfreeze", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/payroll-workflow/run-1/unfreeze", `{"justification":"bank rejected the file"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestParsesPayLines(t *testing.T) {
	svc := &stubService{run: &entity.PayrollRun{ID: "run-1", Status: entity.StatusDraftGenerated}}
	router := newTestRouter(svc)

	body := `{"lines":[{"employee_id":"emp-1","bank_account":"NL01BANK0123456789","net_pay":"2500.00"}]}`
	w := doRequest(router, http.MethodPost, "/payroll-workflow/run-1/ingest", body)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lastLines, 1)
	assert.Equal(t, "emp-1", svc.lastLines[0].EmployeeID)
	assert.Equal(t, "2500", svc.lastLines[0].NetPay.String())
}

func TestAuditTrailEndpoint(t *testing.T) {
	svc := &stubService{entries: []*entity.AuditEntry{
		{ID: 1, RunID: "run-1", Action: entity.AuditCreateRun},
		{ID: 2, RunID: "run-1", Action: entity.AuditLock, Reason: "administrative lock"},
	}}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodGet, "/payroll-workflow/run-1/audit", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RunID   string               `json:"run_id"`
		Entries []*entity.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, entity.AuditCreateRun, resp.Entries[0].Action)
}

func TestListRunsEndpoint(t *testing.T) {
	svc := &stubService{runs: []*entity.PayrollRun{
		{ID: "run-1", Status: entity.StatusDraftGenerated},
		{ID: "run-2", Status: entity.StatusLocked},
	}}
	router := newTestRouter(svc)

	w := doRequest(router, http.MethodGet, "/payroll-workflow?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Runs []*entity.PayrollRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Runs, 2)
}
