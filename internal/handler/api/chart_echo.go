package api

import (
	"errors"
	"strings"
	"time"

	"AstroAI/internal/domain/models"
	domrepo "AstroAI/internal/domain/repository"
	apimetrics "AstroAI/internal/service/metrics"
	"AstroAI/internal/service/ratelimit"
	"AstroAI/internal/usecase"
	xhttp "AstroAI/pkg/http"
	xlogger "AstroAI/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultRetrieveK = 8
	maxRetrieveK     = 100
)

// ChartEchoHandler serves chart computation, interpretation and index maintenance.
type ChartEchoHandler struct {
	logger  *xlogger.Logger
	charts  *usecase.ChartService
	interp  *usecase.InterpretService
	limiter *ratelimit.Limiter
}

func NewChartEchoHandler(
	logger *xlogger.Logger,
	charts *usecase.ChartService,
	interp *usecase.InterpretService,
	limiter *ratelimit.Limiter,
) *ChartEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ChartEchoHandler{logger: logger, charts: charts, interp: interp, limiter: limiter}
}

func (h *ChartEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.POST("/chart/natal", h.NatalChart)
	g.POST("/interpret/natal", h.InterpretNatal)
	g.POST("/rebuild-index", h.RebuildIndex)
	g.GET("/charts/:id", h.GetChart)
	g.GET("/retrieve", h.Retrieve)
}

func (h *ChartEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]bool{"ok": true})
}

func (h *ChartEchoHandler) NatalChart(c echo.Context) error {
	defer observe("chart_natal", time.Now())
	req := &models.BirthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	chart, cached := h.charts.Compute(c.Request().Context(), h.charts.BirthData(*req))
	if cached {
		c.Response().Header().Set("X-Cache", "HIT")
	}
	return xhttp.SuccessResponse(c, chart)
}

func (h *ChartEchoHandler) InterpretNatal(c echo.Context) error {
	defer observe("interpret_natal", time.Now())
	if h.limiter != nil {
		if ok, wait := h.limiter.Allow(c.RealIP()); !ok {
			apimetrics.RateLimited.WithLabelValues("interpret_natal").Inc()
			return xhttp.TooManyRequestsResponse(c, wait)
		}
	}
	req := &models.BirthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.interp.Interpret(c.Request().Context(), h.charts.BirthData(*req))
	if err != nil {
		h.logger.Error("interpret usecase error", xlogger.Error(err))
		apimetrics.EndpointErrors.WithLabelValues("interpret_natal", "usecase").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalError("interpretation failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartEchoHandler) RebuildIndex(c echo.Context) error {
	defer observe("rebuild_index", time.Now())
	n, err := h.interp.Rebuild(c.Request().Context())
	if errors.Is(err, usecase.ErrRebuildInProgress) {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("index rebuild already running"))
	}
	if err != nil {
		h.logger.Error("rebuild index error", xlogger.Error(err))
		apimetrics.EndpointErrors.WithLabelValues("rebuild_index", "usecase").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalError("index rebuild failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]int{"chunks": n})
}

func (h *ChartEchoHandler) GetChart(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	chart, err := h.charts.Get(c.Request().Context(), id)
	switch {
	case err == nil:
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=3600")
		return xhttp.SuccessResponse(c, chart)
	case errors.Is(err, usecase.ErrArchiveDisabled):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("chart archive is not enabled"))
	case errors.Is(err, domrepo.ErrChartNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("chart %s not found", id))
	default:
		h.logger.Error("chart lookup error", xlogger.String("chart_id", id), xlogger.Error(err))
		apimetrics.EndpointErrors.WithLabelValues("charts_get", "store").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalError("chart lookup failed").WithError(err))
	}
}

// Retrieve exposes raw corpus search for debugging the index: GET /api/retrieve?q=...&k=8
func (h *ChartEchoHandler) Retrieve(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("q is required"))
	}
	k := xhttp.ParseIntClamp(c.QueryParam("k"), defaultRetrieveK, 1, maxRetrieveK)
	passages, err := h.interp.Retrieve(c.Request().Context(), q, k)
	if err != nil {
		h.logger.Error("retrieve error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("retrieval failed").WithError(err))
	}
	return xhttp.ListResponse(c, passages, int64(len(passages)))
}

func observe(endpoint string, start time.Time) {
	apimetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
