package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/teachmate/teachmate/internal/curriculum"
)

type CurriculaHandler struct {
	Service *curriculum.Service
	Store   curriculum.Store
}

func (h *CurriculaHandler) Register(g *echo.Group) {
	g.POST("", h.generate)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/modify", h.modify)
	g.DELETE("/:id", h.delete)
}

func (h *CurriculaHandler) generate(c echo.Context) error {
	var req GenerateCurriculumRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Topic) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}
	ov, err := h.Service.Generate(c.Request().Context(), req.Topic, req.SourceURL, req.DepthLevel)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	curriculaGeneratedTotal.Inc()
	return c.JSON(http.StatusCreated, ov)
}

func (h *CurriculaHandler) list(c echo.Context) error {
	plans, err := h.Store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *CurriculaHandler) get(c echo.Context) error {
	ov, err := h.Store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, curriculum.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "curriculum not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *CurriculaHandler) modify(c echo.Context) error {
	var req ModifyCurriculumRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "instruction is required")
	}
	ov, err := h.Service.Modify(c.Request().Context(), c.Param("id"), req.Instruction)
	if errors.Is(err, curriculum.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "curriculum not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *CurriculaHandler) delete(c echo.Context) error {
	err := h.Store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, curriculum.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "curriculum not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
