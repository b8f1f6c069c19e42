package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/pipeline"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const mimeMsgpack = "application/msgpack"

// analyzeResponse is the body of POST /api/analyze.
type analyzeResponse struct {
	Files  []pipeline.FileResult `json:"files" msgpack:"files"`
	Failed int                   `json:"failed" msgpack:"failed"`
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", indexView{Title: title, Limit: s.opt.UploadLimit})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.opt.Version,
		"provider": s.opt.Provider,
		"model":    s.opt.Model,
	})
}

func (s *Server) handleAnalyzePage(c echo.Context) error {
	uploads, err := readUploads(c)
	if err != nil {
		return err
	}
	results := s.runner.Run(c.Request().Context(), uploads)
	return c.Render(http.StatusOK, "results.html", newResultsView(results))
}

func (s *Server) handleAnalyzeAPI(c echo.Context) error {
	uploads, err := readUploads(c)
	if err != nil {
		return err
	}
	results := s.runner.Run(c.Request().Context(), uploads)
	body := analyzeResponse{Files: results, Failed: pipeline.Failures(results)}
	if !wantsMsgpack(c) {
		return c.JSON(http.StatusOK, body)
	}
	data, err := msgpack.Marshal(body)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, mimeMsgpack, data)
}

func wantsMsgpack(c echo.Context) bool {
	if strings.EqualFold(c.QueryParam("format"), "msgpack") {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), mimeMsgpack)
}

// readUploads reads every part of the "files" multipart field into memory.
func readUploads(c echo.Context) ([]pipeline.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, NewBadRequestError("expected a multipart form", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, errNoFiles
	}
	uploads := make([]pipeline.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, NewBadRequestError(fmt.Sprintf("cannot open %s", fh.Filename), err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, NewBadRequestError(fmt.Sprintf("cannot read %s", fh.Filename), err)
		}
		uploads = append(uploads, pipeline.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}
