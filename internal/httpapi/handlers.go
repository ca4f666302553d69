package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftco/drift/internal/facade"
	"github.com/driftco/drift/internal/patterns"
)

// Handler adapts facade.Facade to Gin request/response handling, in the
// same shape as the teacher's ProofHandler: one struct wrapping the
// backend, one method per route, a shared error envelope.
type Handler struct {
	facade facade.Facade
	logger *slog.Logger
}

// NewHandler binds a Handler to f.
func NewHandler(f facade.Facade, logger *slog.Logger) *Handler {
	return &Handler{facade: f, logger: logger}
}

// errorResponse is the standard error envelope for every route.
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) fail(c *gin.Context, status int, kind string, err error) {
	h.logger.Warn("httpapi request failed", slog.String("kind", kind), slog.Any("error", err))
	c.JSON(status, errorResponse{Error: kind, Message: err.Error(), Timestamp: time.Now().UTC()})
}

func (h *Handler) Health(c *gin.Context) {
	result, err := h.facade.Health(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "health_check_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Scan(c *gin.Context) {
	var req facade.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.facade.Scan(c.Request.Context(), req)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "scan_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Analyze(c *gin.Context) {
	var req facade.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.facade.Analyze(c.Request.Context(), req)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "analyze_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListPatterns(c *gin.Context) {
	filter := facade.PatternFilter{
		Category: patterns.Category(c.Query("category")),
		Status:   patterns.Status(c.Query("status")),
		File:     c.Query("file"),
	}
	result, err := h.facade.ListPatterns(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "list_patterns_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": result})
}

func (h *Handler) GetPattern(c *gin.Context) {
	result, err := h.facade.GetPattern(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusNotFound, "pattern_not_found", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ApprovePattern(c *gin.Context) {
	by := c.Query("by")
	result, err := h.facade.ApprovePattern(c.Request.Context(), c.Param("id"), by)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "approve_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) IgnorePattern(c *gin.Context) {
	result, err := h.facade.IgnorePattern(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, "ignore_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RevertPattern(c *gin.Context) {
	result, err := h.facade.RevertPattern(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, "revert_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) DeletePattern(c *gin.Context) {
	if err := h.facade.DeletePattern(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, http.StatusBadRequest, "delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListConventions(c *gin.Context) {
	result, err := h.facade.ListConventions(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "list_conventions_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conventions": result})
}

func depthParam(c *gin.Context) int {
	depth, err := strconv.Atoi(c.Query("maxDepth"))
	if err != nil {
		return 0
	}
	return depth
}

func (h *Handler) ForwardReach(c *gin.Context) {
	query := facade.ReachabilityQuery{FunctionID: c.Param("functionId"), MaxDepth: depthParam(c)}
	result, err := h.facade.ForwardReach(c.Request.Context(), query)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "reachability_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) BackwardReach(c *gin.Context) {
	query := facade.ReachabilityQuery{FunctionID: c.Param("functionId"), MaxDepth: depthParam(c)}
	result, err := h.facade.BackwardReach(c.Request.Context(), query)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "reachability_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// analysisDispatch maps a route's :kind segment to its Facade method,
// since every secondary analysis shares AnalysisRequest/AnalysisResult.
var analysisDispatch = map[string]func(facade.Facade, *gin.Context) (facade.AnalysisResult, error){
	"taint":          func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeTaint, c) },
	"error-handling": func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeErrorHandling, c) },
	"impact":         func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeImpact, c) },
	"topology":       func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeTopology, c) },
	"coupling":       func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeCoupling, c) },
	"constraints":    func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeConstraints, c) },
	"contracts":      func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeContracts, c) },
	"constants":      func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeConstants, c) },
	"wrappers":       func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeWrappers, c) },
	"dna":            func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeDNA, c) },
	"owasp":          func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeOWASP, c) },
	"crypto":         func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeCrypto, c) },
	"decomposition":  func(f facade.Facade, c *gin.Context) (facade.AnalysisResult, error) { return dispatchAnalysis(f.AnalyzeDecomposition, c) },
}

func dispatchAnalysis(
	fn func(ctx context.Context, req facade.AnalysisRequest) (facade.AnalysisResult, error),
	c *gin.Context,
) (facade.AnalysisResult, error) {
	var req facade.AnalysisRequest
	_ = c.ShouldBindJSON(&req)
	return fn(c.Request.Context(), req)
}

// Analyze2 handles POST /api/v1/analyses/:kind, dispatching to the named
// secondary analysis.
func (h *Handler) Analyze2(c *gin.Context) {
	run, ok := analysisDispatch[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown_analysis", Message: c.Param("kind"), Timestamp: time.Now().UTC()})
		return
	}
	result, err := run(h.facade, c)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "analysis_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GateCheck(c *gin.Context) {
	var req facade.GateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.facade.GateCheck(c.Request.Context(), req)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "gate_check_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GateViolations(c *gin.Context) {
	result, err := h.facade.GateViolations(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "gate_violations_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Simulate(c *gin.Context) {
	var req facade.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.facade.Simulate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "simulate_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateBackup(c *gin.Context) {
	reason := c.Query("reason")
	result, err := h.facade.CreateBackup(c.Request.Context(), reason)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "backup_failed", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListBackups(c *gin.Context) {
	result, err := h.facade.ListBackups(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "list_backups_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": result})
}

func (h *Handler) RestoreBackup(c *gin.Context) {
	result, err := h.facade.RestoreBackup(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, "restore_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) DeleteBackup(c *gin.Context) {
	token := c.Query("confirm")
	if err := h.facade.DeleteBackup(c.Request.Context(), c.Param("id"), token); err != nil {
		h.fail(c, http.StatusBadRequest, "delete_backup_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetConfig(c *gin.Context) {
	result, err := h.facade.GetConfig(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "get_config_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	current, err := h.facade.GetConfig(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "get_config_failed", err)
		return
	}
	if err := c.ShouldBindJSON(&current); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.facade.UpdateConfig(c.Request.Context(), current); err != nil {
		h.fail(c, http.StatusInternalServerError, "update_config_failed", err)
		return
	}
	c.JSON(http.StatusOK, current)
}
