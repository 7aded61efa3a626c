package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/errors"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/service"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/ws"
)

type RaffleHandler struct {
	service *service.Service
	hub     *ws.Hub
}

func NewRaffleHandler(service *service.Service, hub *ws.Hub) *RaffleHandler {
	return &RaffleHandler{
		service: service,
		hub:     hub,
	}
}

func (h *RaffleHandler) RegisterRoutes(router *gin.RouterGroup) {
	prizes := router.Group("/prizes")
	{
		prizes.GET("", h.listPrizes)
		prizes.GET("/stats", h.prizeStats)
	}

	sessions := router.Group("/sessions")
	{
		sessions.GET("/current", h.currentSession)
		sessions.GET("/:id/stats", h.sessionStats)
		sessions.POST("/current/close", h.closeCurrentSession)
	}
}

func (h *RaffleHandler) listPrizes(c *gin.Context) {
	snapshot, err := h.service.AvailablePrizes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": snapshot})
}

func (h *RaffleHandler) prizeStats(c *gin.Context) {
	stats, err := h.service.PrizeStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *RaffleHandler) currentSession(c *gin.Context) {
	session, err := h.service.CurrentSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *RaffleHandler) sessionStats(c *gin.Context) {
	info, err := h.service.SessionInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *RaffleHandler) closeCurrentSession(c *gin.Context) {
	session, err := h.service.CurrentSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	closed, err := h.service.CloseSession(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(ws.Message{Event: ws.EventSessionClosed, Data: ws.SessionClosedData{
		SessionID: closed.ID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})

	c.JSON(http.StatusOK, closed)
}

func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(statusFor(appErr.Code), gin.H{"code": string(appErr.Code), "error": appErr.Message})
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeDuplicate:
		return http.StatusConflict
	case apperrors.CodeSessionClosed, apperrors.CodePoolExhausted:
		return http.StatusConflict
	case apperrors.CodeContention:
		return http.StatusTooManyRequests
	case apperrors.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
