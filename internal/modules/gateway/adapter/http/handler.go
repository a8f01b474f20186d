package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	gsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	gsusecase "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/usecase"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/usecase"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/ws"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	colorgame "github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service/color_game"
)

// UserIDHeader carries the authenticated player id set by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

// Handler handles HTTP/WebSocket requests
type Handler struct {
	useCase domain.GatewayUseCase
	svc     colorgame.ColorGameService
	manager *ws.Manager
}

// NewHandler creates a new HTTP handler
func NewHandler(useCase domain.GatewayUseCase, svc colorgame.ColorGameService, manager *ws.Manager) *Handler {
	return &Handler{
		useCase: useCase,
		svc:     svc,
		manager: manager,
	}
}

// RegisterRoutes registers player routes to the given router group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/modes", h.ListModes)
	router.GET("/modes/:mode/current", h.GetState)
	router.GET("/modes/:mode/stats", h.GetLiveStats)
	router.GET("/modes/:mode/rounds", h.ListRounds)
	router.GET("/modes/:mode/rounds/:period", h.GetRound)
	router.GET("/modes/:mode/rounds/:period/bets", h.GetRoundBets)
	router.GET("/modes/:mode/rounds/:period/my-bets", h.GetMyBets)
	router.POST("/modes/:mode/rounds/:period/bets", h.PlaceBet)
	router.GET("/wallet/balance", h.GetBalance)
}

// RegisterAdminRoutes registers admin routes to the given router group
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.POST("/modes/:mode/rounds/:period/result", h.SubmitManualResult)
	router.POST("/modes/:mode/rounds/:period/settle", h.RetrySettlement)
	router.POST("/wallet/:user/adjust", h.AdjustBalance)
}

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, gmsdomain.ErrRoundNotFound):
		return http.StatusNotFound
	case gsdomain.IsValidationError(err):
		return http.StatusBadRequest
	case gsdomain.IsStateConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := StatusFor(err)
	ev := logger.Warn(c.Request.Context())
	if status == http.StatusInternalServerError {
		ev = logger.Error(c.Request.Context())
	}
	ev.Err(err).Int("status", status).Msg(op + ": failed")
	c.JSON(status, gin.H{"error": err.Error(), "error_code": usecase.ErrorCode(err)})
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + UserIDHeader})
		return 0, false
	}
	return id, true
}

func period(c *gin.Context) (int64, bool) {
	p, err := strconv.ParseInt(c.Param("period"), 10, 64)
	if err != nil || p <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period number"})
		return 0, false
	}
	return p, true
}

// DTOs
type placeBetRequest struct {
	BetType  string          `json:"bet_type" binding:"required"`
	BetValue string          `json:"bet_value" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type adjustBalanceRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" binding:"required"`
}

type manualResultRequest struct {
	Number *int `json:"number" binding:"required"`
}

// ListModes returns the mode catalog
func (h *Handler) ListModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": h.svc.Modes()})
}

// GetState returns the current round; with a user header it includes the player's bets and balance
func (h *Handler) GetState(c *gin.Context) {
	var uid int64
	if c.GetHeader(UserIDHeader) != "" {
		var ok bool
		if uid, ok = userID(c); !ok {
			return
		}
	}
	state, err := h.svc.GetState(c.Request.Context(), c.Param("mode"), uid)
	if err != nil {
		h.fail(c, "GetState", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetLiveStats returns the running tally of the open round
func (h *Handler) GetLiveStats(c *gin.Context) {
	stats, err := h.svc.GetLiveStats(c.Request.Context(), c.Param("mode"))
	if err != nil {
		h.fail(c, "GetLiveStats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListRounds returns round history, newest first
func (h *Handler) ListRounds(c *gin.Context) {
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	rounds, err := h.svc.ListRounds(c.Request.Context(), c.Param("mode"), before, limit)
	if err != nil {
		h.fail(c, "ListRounds", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

// GetRound returns one round
func (h *Handler) GetRound(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	round, err := h.svc.GetRound(c.Request.Context(), c.Param("mode"), p)
	if err != nil {
		h.fail(c, "GetRound", err)
		return
	}
	c.JSON(http.StatusOK, round)
}

// GetRoundBets returns every bet of a LOCKED or CLOSED round
func (h *Handler) GetRoundBets(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	bets, err := h.svc.GetBetsForRound(c.Request.Context(), c.Param("mode"), p)
	if err != nil {
		h.fail(c, "GetRoundBets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

// GetMyBets returns the caller's bets of a round
func (h *Handler) GetMyBets(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	p, ok := period(c)
	if !ok {
		return
	}
	bets, err := h.svc.GetUserBets(c.Request.Context(), c.Param("mode"), p, uid)
	if err != nil {
		h.fail(c, "GetMyBets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

// PlaceBet places a bet for the caller
func (h *Handler) PlaceBet(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	p, ok := period(c)
	if !ok {
		return
	}

	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(c.Request.Context()).Err(err).Msg("PlaceBet: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	betType, ok := gsdomain.ParseBetType(req.BetType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bet type: " + req.BetType})
		return
	}

	result, err := h.svc.PlaceBet(c.Request.Context(), gsusecase.PlaceBetRequest{
		ModeID:       c.Param("mode"),
		PeriodNumber: p,
		UserID:       uid,
		BetType:      betType,
		BetValue:     req.BetValue,
		Amount:       req.Amount,
	})
	if err != nil {
		h.fail(c, "PlaceBet", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBalance returns the caller's balance
func (h *Handler) GetBalance(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	balance, err := h.svc.GetBalance(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, "GetBalance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "balance": balance})
}

// SubmitManualResult records an admin result for a LOCKED round
func (h *Handler) SubmitManualResult(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	var req manualResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.SubmitManualResult(c.Request.Context(), c.Param("mode"), p, *req.Number)
	if err != nil {
		h.fail(c, "SubmitManualResult", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RetrySettlement forces a settlement attempt of a LOCKED round
func (h *Handler) RetrySettlement(c *gin.Context) {
	p, ok := period(c)
	if !ok {
		return
	}
	if err := h.svc.RetrySettlement(c.Request.Context(), c.Param("mode"), p); err != nil {
		h.fail(c, "RetrySettlement", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// AdjustBalance credits or debits a player's wallet
func (h *Handler) AdjustBalance(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Param("user"), 10, 64)
	if err != nil || uid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req adjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.svc.AdjustBalance(c.Request.Context(), uid, req.Amount, req.Reference)
	if err != nil {
		h.fail(c, "AdjustBalance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "balance": balance})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// HandleWebSocket handles websocket requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Create context with Request ID for WebSocket
	ctx := logger.WebSocketContext(r)
	requestID := logger.GetRequestID(ctx)

	logger.Info(ctx).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket 连接请求")

	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		logger.Warn(ctx).Str("user_id", raw).Msg("缺少用户标识")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("WebSocket 升级失败")
		return
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Msg("WebSocket 连接建立成功")

	client := h.manager.Register(conn, userID)

	go client.WritePump()
	go client.ReadPump(func(userID int64, message []byte) {
		// Create new context with Request ID for each message
		msgCtx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
		msgCtx = logger.WithFields(msgCtx, map[string]interface{}{
			"user_id":       userID,
			"ws_request_id": requestID, // Original WS connection ID
		})

		logger.Debug(msgCtx).
			Int("message_size", len(message)).
			Msg("收到 WebSocket 消息")

		response, err := h.useCase.HandleMessage(msgCtx, userID, message)
		if err != nil {
			logger.Error(msgCtx).
				Err(err).
				Msg("处理消息失败")

			errorResp := map[string]interface{}{
				"type":  "error",
				"error": err.Error(),
			}
			if jsonResp, err := json.Marshal(errorResp); err == nil {
				h.manager.SendToUser(userID, jsonResp)
			}
		} else if response != nil {
			h.manager.SendToUser(userID, response)
		}
	})
}
