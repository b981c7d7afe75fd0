package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/teachmate/teachmate/internal/chat"
)

type ChatHandler struct {
	Orch *chat.Orchestrator
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("", h.message)
}

func (h *ChatHandler) message(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	res, err := h.Orch.HandleMessage(c.Request().Context(), req.SessionID, req.Content, req.ForceWebSearch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	chatTurnsTotal.Inc()

	return c.JSON(http.StatusOK, MessageResponse{
		Content:          res.Content,
		Sources:          res.Sources,
		SessionID:        res.SessionID,
		BaselineResponse: res.BaselineResponse,
	})
}
