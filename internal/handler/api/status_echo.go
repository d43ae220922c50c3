package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domainrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// StatusHandler exposes the read-only operational surface: liveness, store
// health, open positions, PnL rollups and recent trades.
type StatusHandler struct {
	loop   *usecase.TradingLoop
	store  domainrepo.TradeStore
	logger *logger.Logger
}

// NewStatusHandler creates the status API handler.
func NewStatusHandler(loop *usecase.TradingLoop, store domainrepo.TradeStore, log *logger.Logger) *StatusHandler {
	return &StatusHandler{loop: loop, store: store, logger: log}
}

// RegisterRoutes registers the status routes on the Echo instance.
func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/positions", h.Positions)
	g.GET("/pnl", h.PnL)
	g.GET("/trades", h.Trades)
}

// Root answers a plain liveness line.
func (h *StatusHandler) Root(c echo.Context) error {
	return c.String(http.StatusOK, "TradePulse running")
}

// Health reports store reachability.
func (h *StatusHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", logger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Positions returns the per-pair position views.
func (h *StatusHandler) Positions(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.loop.PositionsSnapshot())
}

// PnL returns the all-time realized PnL per pair.
func (h *StatusHandler) PnL(c echo.Context) error {
	sums, err := h.store.SumPnlByPair(c.Request().Context())
	if err != nil {
		h.logger.Error("pnl query failed", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, sums)
}

// TradesRequest bounds the recent-trades query.
type TradesRequest struct {
	N    int    `query:"n" default:"50" validate:"gte=1,lte=500"`
	From string `query:"from"`
}

// Trades returns recent trades, optionally bounded by a from timestamp.
func (h *StatusHandler) Trades(c echo.Context) error {
	req := new(TradesRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	trades, err := h.store.LastTrades(c.Request().Context(), req.N)
	if err != nil {
		h.logger.Error("trades query failed", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	from := util.ParseTimeDefault(req.From, time.Time{})
	if !from.IsZero() {
		filtered := trades[:0]
		for _, tr := range trades {
			if !tr.Timestamp.Before(from) {
				filtered = append(filtered, tr)
			}
		}
		trades = filtered
	}
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}
