package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teachmate/teachmate/internal/ingest"
	"github.com/teachmate/teachmate/internal/session"
)

type IngestHandler struct {
	Store    session.Store
	Locker   *session.Locker
	Ingestor *ingest.Ingestor
}

func (h *IngestHandler) Register(g *echo.Group) {
	g.POST("/document", h.document)
	g.POST("/url", h.url)
}

func (h *IngestHandler) document(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	sessionID := c.FormValue("session_id")

	ctx := c.Request().Context()
	sess, unlock, err := h.lockAndLoad(c, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	// re-processing a known document is a no-op
	if containsString(sess.Documents, fileHeader.Filename) {
		return c.JSON(http.StatusOK, SourceResponse{Success: true, Sources: sess.Documents, SessionID: sess.ID})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer src.Close()

	res, err := h.Ingestor.IngestFile(ctx, sess.ID, fileHeader.Filename, src)
	if err != nil {
		return ingestHTTPError(err)
	}
	documentsIngestedTotal.WithLabelValues("file").Inc()

	sess.Documents = append(sess.Documents, res.Document)
	sess.UpdatedAt = time.Now().UTC()
	if err := h.Store.Save(ctx, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SourceResponse{Success: true, Sources: sess.Documents, SessionID: sess.ID})
}

func (h *IngestHandler) url(c echo.Context) error {
	var req ProcessURLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	ctx := c.Request().Context()
	sess, unlock, err := h.lockAndLoad(c, req.SessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if containsString(sess.Documents, req.URL) {
		return c.JSON(http.StatusOK, SourceResponse{Success: true, Sources: sess.Documents, SessionID: sess.ID})
	}

	res, err := h.Ingestor.IngestURL(ctx, sess.ID, req.URL)
	if err != nil {
		return ingestHTTPError(err)
	}
	documentsIngestedTotal.WithLabelValues("url").Inc()

	sess.Documents = append(sess.Documents, res.Document)
	sess.UpdatedAt = time.Now().UTC()
	if err := h.Store.Save(ctx, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SourceResponse{Success: true, Sources: sess.Documents, SessionID: sess.ID})
}

// lockAndLoad resolves the target session: empty id creates a fresh
// session, an unknown id is a client error.
func (h *IngestHandler) lockAndLoad(c echo.Context, sessionID string) (*session.Session, func(), error) {
	ctx := c.Request().Context()
	if sessionID == "" {
		sess := session.NewSession()
		unlock := h.Locker.Lock(sess.ID)
		return sess, unlock, nil
	}
	unlock := h.Locker.Lock(sessionID)
	sess, err := h.Store.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		unlock()
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		unlock()
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return sess, unlock, nil
}

func ingestHTTPError(err error) error {
	switch {
	case errors.Is(err, ingest.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ingest.ErrEmptyContent):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
