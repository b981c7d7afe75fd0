package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/teachmate/teachmate/internal/index"
	"github.com/teachmate/teachmate/internal/session"
)

type SessionsHandler struct {
	Store  session.Store
	Locker *session.Locker
	Index  *index.Manager
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

func (h *SessionsHandler) list(c echo.Context) error {
	summaries, err := h.Store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *SessionsHandler) create(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := session.NewSession()
	if name := strings.TrimSpace(req.Name); name != "" {
		sess.Name = name
	}
	if err := h.Store.Save(c.Request().Context(), sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *SessionsHandler) get(c echo.Context) error {
	sess, err := h.Store.Load(c.Request().Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *SessionsHandler) delete(c echo.Context) error {
	id := c.Param("id")
	unlock := h.Locker.Lock(id)
	defer unlock()

	err := h.Store.Delete(c.Request().Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// session vectors go with the session
	_ = h.Index.Drop(c.Request().Context(), id)
	return c.NoContent(http.StatusNoContent)
}

// sources lists the processed document names of a session.
func (h *SessionsHandler) sources(c echo.Context) error {
	sess, err := h.Store.Load(c.Request().Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SourceResponse{Success: true, Sources: sess.Documents, SessionID: sess.ID})
}
