package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/service"
	"github.com/garyjia/payroll-control/internal/domain/entity"
	domainwf "github.com/garyjia/payroll-control/internal/domain/workflow"
)

// Handler maps HTTP requests 1:1 onto workflow engine operations
type Handler struct {
	svc    service.WorkflowService
	logger *zap.Logger
}

// NewHandler creates a new workflow HTTP handler
func NewHandler(svc service.WorkflowService, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Register wires the workflow routes onto the router
func (h *Handler) Register(r *gin.Engine) {
	runs := r.Group("/payroll-workflow")
	{
		runs.GET("", h.List)
		runs.GET("/:id", h.Get)
		runs.GET("/:id/audit", h.Audit)
		runs.POST("/:id/create", h.Create)
		runs.POST("/:id/initiate", h.Initiate)
		runs.POST("/:id/ingest", h.Ingest)
		runs.POST("/:id/publish", h.Publish)
		runs.POST("/:id/manager", h.ManagerDecision)
		runs.POST("/:id/finance", h.FinanceDecision)
		runs.POST("/:id/lock", h.Lock)
		runs.POST("/:id/unfreeze", h.Unfreeze)
		runs.POST("/:id/exceptions/resolve", h.ResolveException)
	}
}

type exceptionRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
	Message    string `json:"message"`
	Field      string `json:"field"`
}

type createRequest struct {
	Exceptions []exceptionRequest `json:"exceptions"`
}

type payLineRequest struct {
	EmployeeID  string          `json:"employee_id" binding:"required"`
	BankAccount string          `json:"bank_account"`
	NetPay      decimal.Decimal `json:"net_pay"`
}

type ingestRequest struct {
	Lines []payLineRequest `json:"lines" binding:"required"`
}

type noteRequest struct {
	AuthorID string `json:"author_id"`
	Note     string `json:"note"`
}

type decisionRequest struct {
	Result string       `json:"result" binding:"required"`
	Note   *noteRequest `json:"note"`
}

type unfreezeRequest struct {
	Justification string `json:"justification" binding:"required"`
}

type resolveExceptionRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

// Create handles POST /payroll-workflow/:id/create
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exceptions := make([]entity.PayrollException, 0, len(req.Exceptions))
	for _, e := range req.Exceptions {
		exceptions = append(exceptions, entity.PayrollException{
			EmployeeID: e.EmployeeID,
			Code:       e.Code,
			Message:    e.Message,
			Field:      e.Field,
		})
	}

	run, err := h.svc.CreateRun(c.Request.Context(), c.Param("id"), exceptions)
	h.respond(c, http.StatusCreated, run, err)
}

// Initiate handles POST /payroll-workflow/:id/initiate
func (h *Handler) Initiate(c *gin.Context) {
	run, err := h.svc.InitiateRun(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusCreated, run, err)
}

// Ingest handles POST /payroll-workflow/:id/ingest
func (h *Handler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]entity.PayLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, entity.PayLine{
			EmployeeID:  l.EmployeeID,
			BankAccount: l.BankAccount,
			NetPay:      l.NetPay,
		})
	}

	run, err := h.svc.IngestPayLines(c.Request.Context(), c.Param("id"), lines)
	h.respond(c, http.StatusOK, run, err)
}

// Publish handles POST /payroll-workflow/:id/publish
func (h *Handler) Publish(c *gin.Context) {
	run, err := h.svc.PublishForReview(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, run, err)
}

// ManagerDecision handles POST /payroll-workflow/:id/manager
func (h *Handler) ManagerDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.svc.ManagerDecision(c.Request.Context(), c.Param("id"), req.Result, reviewNote(req.Note, entity.RoleManager))
	h.respond(c, http.StatusOK, run, err)
}

// FinanceDecision handles POST /payroll-workflow/:id/finance
func (h *Handler) FinanceDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.svc.FinanceDecision(c.Request.Context(), c.Param("id"), req.Result, reviewNote(req.Note, entity.RoleFinance))
	h.respond(c, http.StatusOK, run, err)
}

// Lock handles POST /payroll-workflow/:id/lock
func (h *Handler) Lock(c *gin.Context) {
	run, err := h.svc.LockRun(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, run, err)
}

// Unfreeze handles POST /payroll-workflow/:id/unfreeze
func (h *Handler) Unfreeze(c *gin.Context) {
	var req unfreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.svc.UnfreezeRun(c.Request.Context(), c.Param("id"), req.Justification)
	h.respond(c, http.StatusOK, run, err)
}

// ResolveException handles POST /payroll-workflow/:id/exceptions/resolve
func (h *Handler) ResolveException(c *gin.Context) {
	var req resolveExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.svc.ResolveException(c.Request.Context(), c.Param("id"), req.EmployeeID, req.Code)
	h.respond(c, http.StatusOK, run, err)
}

// Get handles GET /payroll-workflow/:id
func (h *Handler) Get(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, run, err)
}

// Audit handles GET /payroll-workflow/:id/audit
func (h *Handler) Audit(c *gin.Context) {
	entries, err := h.svc.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Audit trail lookup failed", zap.String("run_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "entries": entries})
}

// List handles GET /payroll-workflow
func (h *Handler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// respond maps operation outcomes onto HTTP statuses. A nil run with nil
// error means the run id is unknown.
func (h *Handler) respond(c *gin.Context, okStatus int, run *entity.PayrollRun, err error) {
	switch {
	case err == nil && run == nil:
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "payroll run not found",
			"run_id": c.Param("id"),
		})
	case err == nil:
		c.JSON(okStatus, run)
	case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, service.ErrRunExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run_id": c.Param("id")})
	case errors.Is(err, service.ErrUnknownDecision),
		errors.Is(err, service.ErrJustificationRequired),
		errors.Is(err, service.ErrExceptionNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "run_id": c.Param("id")})
	default:
		h.logger.Error("Workflow operation failed", zap.String("run_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run_id": c.Param("id")})
	}
}

func reviewNote(req *noteRequest, role string) *entity.ReviewNote {
	if req == nil || req.Note == "" {
		return nil
	}
	return &entity.ReviewNote{
		AuthorID: req.AuthorID,
		Role:     role,
		Note:     req.Note,
	}
}
