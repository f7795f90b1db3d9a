package restapi

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"aptoscope/internal/app/port"
	"aptoscope/internal/domain/entity"
	"aptoscope/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// addressPattern matches an Aptos account address: 0x followed by up to 64 hex
// characters (leading zeros may be trimmed on chain).
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// HistoryHandler handles HTTP requests for portfolio history and holdings.
type HistoryHandler struct {
	historyService port.HistoryService
	logger         port.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(hs port.HistoryService, logger port.Logger) *HistoryHandler {
	return &HistoryHandler{
		historyService: hs,
		logger:         logger,
	}
}

// GetHistoryHandler handles GET /wallets/:walletAddress/history?timeframe=7D.
//
// Success is always HTTP 200 with the full series, even when upstream price or
// flow data was partially unavailable; only input errors and a balance-source
// failure surface as error responses.
func (h *HistoryHandler) GetHistoryHandler(c *gin.Context) {
	address := c.Param("walletAddress")
	if !addressPattern.MatchString(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	timeframe := entity.Timeframe(strings.ToUpper(c.DefaultQuery("timeframe", string(entity.Timeframe7D))))
	if !timeframe.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeframe, expected one of 7D, 30D, 90D"})
		return
	}

	start := time.Now()
	series, err := h.historyService.GetHistory(c.Request.Context(), address, timeframe)
	metrics.HistoryRequestDuration.WithLabelValues(string(timeframe)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.HistoryRequestsTotal.WithLabelValues(string(timeframe), "error").Inc()
		h.logger.Error("History computation failed",
			"address", address,
			"timeframe", string(timeframe),
			"request_id", c.GetString("request_id"),
			"error", err)
		// Upstream details stay in the logs; the caller gets a generic message.
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to fetch wallet balances"})
		return
	}

	metrics.HistoryRequestsTotal.WithLabelValues(string(timeframe), "ok").Inc()
	c.JSON(http.StatusOK, series)
}

// GetHoldingsHandler handles GET /wallets/:walletAddress/balances.
func (h *HistoryHandler) GetHoldingsHandler(c *gin.Context) {
	address := c.Param("walletAddress")
	if !addressPattern.MatchString(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	holdings, err := h.historyService.GetCurrentHoldings(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("Holdings fetch failed",
			"address", address,
			"request_id", c.GetString("request_id"),
			"error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to fetch wallet balances"})
		return
	}

	c.JSON(http.StatusOK, holdings)
}
