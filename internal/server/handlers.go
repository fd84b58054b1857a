package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"legal-explainer/internal/analysis"
	"legal-explainer/internal/intake"
	"legal-explainer/internal/models"
	"legal-explainer/internal/ui"
)

type pageData struct {
	ui.Snapshot
	Result  template.HTML
	Alerts  []string
	Refresh bool
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleIndex(c echo.Context) error {
	snap := s.orch.Snapshot()
	data := pageData{
		Snapshot: snap,
		// HTML comes from the markdown renderer, which drops raw HTML
		Result:  template.HTML(snap.HTML),
		Alerts:  s.orch.TakeAlerts(),
		Refresh: snap.Busy,
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return s.page.Execute(c.Response(), data)
}

func (s *Server) handleSelect(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, s.maxBody)

	header, err := c.FormFile("file")
	switch {
	case err == nil:
		err = s.orch.SelectUpload(header)
		if _, rejected := intake.AsRejection(err); err != nil && !rejected && s.orch.ConfigError() == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "could not read upload").SetInternal(err)
		}
	case isBodyTooLarge(err):
		_ = s.orch.Reject(intake.ReasonTooLarge, "")
	case errors.Is(err, http.ErrMissingFile):
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upload").SetInternal(err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleAnalyze(c echo.Context) error {
	// the run outlives this request
	ctx := context.WithoutCancel(c.Request().Context())

	done, err := s.orch.Start(ctx)
	switch {
	case err == nil:
		s.running.Add(1)
		go func() {
			<-done
			s.running.Done()
		}()
	case errors.Is(err, ui.ErrBusy):
		log.Debug().Msg("Analysis already running")
	default:
		log.Warn().Err(err).Msg("Analysis refused")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleToggles(c echo.Context) error {
	readAloud := checked(c.FormValue("read_aloud"))
	narration := checked(c.FormValue("narration"))

	s.orch.SetReadAloud(readAloud)
	if narration != s.orch.Snapshot().Narration {
		s.orch.SetNarration(narration)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleDrag(c echo.Context) error {
	if err := s.orch.Drag(c.FormValue("event")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleExplain runs one document through the pipeline without touching the page.
func (s *Server) handleExplain(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, s.maxBody)

	header, err := c.FormFile("file")
	switch {
	case err == nil:
	case isBodyTooLarge(err):
		return rejection(c, s.pipeline.Reject(intake.ReasonTooLarge, ""))
	case errors.Is(err, http.ErrMissingFile):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "missing form file \"file\""})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid upload").SetInternal(err)
	}

	if err := s.orch.ConfigError(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: models.MsgConfigError})
	}

	doc, err := s.pipeline.Load(header)
	if err != nil {
		return rejection(c, err)
	}

	exp, err := s.pipeline.Run(req.Context(), doc)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, exp)
	case errors.Is(err, analysis.ErrEmptyExtraction):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: models.MsgEmptyExtraction})
	default:
		if rej, ok := intake.AsRejection(err); ok {
			return rejection(c, rej)
		}
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: fmt.Sprintf(models.MsgProcessFailed, err.Error())})
	}
}

func rejection(c echo.Context, err error) error {
	rej, ok := intake.AsRejection(err)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read upload").SetInternal(err)
	}
	return c.JSON(http.StatusBadRequest, errorResponse{Error: rej.Message(), Reason: string(rej.Reason)})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || (err != nil && strings.Contains(err.Error(), "request body too large"))
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1":
		return true
	}
	return false
}
