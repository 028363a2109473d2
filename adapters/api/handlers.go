package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dqengine/adapters/excel"
	"dqengine/app"
	"dqengine/internal/errors"
	"dqengine/internal/report"
	"dqengine/internal/suite"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	Violations []string `json:"violations,omitempty"`
}

// GateResponse is returned with 422 when a gated check fails
type GateResponse struct {
	ErrorResponse
	Result *app.CheckResult `json:"result"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListSuites(c *gin.Context) {
	s.mu.RLock()
	names := suite.Names(s.suites)
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{"suites": names})
}

func (s *Server) handleGetSuite(c *gin.Context) {
	st, ok := s.suite(c.Param("name"))
	if !ok {
		s.writeError(c, errors.NotFound("suite "+c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, st)
}

// handleCheck runs a suite against an uploaded snapshot. The body is the
// current snapshot as CSV (or XLSX with ?type=xlsx). A historical snapshot
// may be sent as the "historical" file of a multipart form, alongside "current".
func (s *Server) handleCheck(c *gin.Context) {
	st, ok := s.suite(c.Param("name"))
	if !ok {
		s.writeError(c, errors.NotFound("suite "+c.Param("name")))
		return
	}

	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	gate := c.Query("gate") == "true"

	ctx := c.Request.Context()
	if s.config.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CheckTimeout)
		defer cancel()
	}

	req, err := s.readSnapshots(ctx, c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	compiled, err := suite.Compile(st, s.compile)
	if err != nil {
		s.writeError(c, err)
		return
	}
	req.Suite = compiled

	result, err := s.service.Check(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if gate && !result.Passed {
		c.JSON(http.StatusUnprocessableEntity, GateResponse{
			ErrorResponse: ErrorResponse{
				Error:      app.Gate(result, s.service.Policy()).Error(),
				Code:       errors.CodeDataQuality,
				Violations: result.Violations,
			},
			Result: result,
		})
		return
	}

	if format == report.FormatJSON {
		c.JSON(http.StatusOK, result)
		return
	}
	body, err := report.Render(result.Document(), format)
	if err != nil {
		s.writeError(c, errors.InternalError(err.Error()))
		return
	}
	c.Data(http.StatusOK, format.ContentType(), body)
}

func (s *Server) readSnapshots(ctx context.Context, c *gin.Context) (app.CheckRequest, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxBodyBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return s.readMultipart(ctx, c)
	}

	fileType := excel.FileTypeCSV
	if c.Query("type") == excel.FileTypeXLSX {
		fileType = excel.FileTypeXLSX
	}
	current, _, err := s.reader.LoadReader(ctx, "current", fileType, c.Request.Body)
	if err != nil {
		return app.CheckRequest{}, err
	}
	return app.CheckRequest{Current: current}, nil
}

func (s *Server) readMultipart(ctx context.Context, c *gin.Context) (app.CheckRequest, error) {
	var req app.CheckRequest

	for _, part := range []string{"current", "historical"} {
		header, err := c.FormFile(part)
		if err != nil {
			if part == "current" {
				return req, errors.InvalidInput("multipart field \"current\" is required")
			}
			continue
		}

		file, err := header.Open()
		if err != nil {
			return req, errors.DatasetError("failed to open upload "+part, err)
		}
		ds, _, err := s.reader.LoadReader(ctx, header.Filename, excel.FileType(header.Filename), file)
		file.Close()
		if err != nil {
			return req, err
		}

		if part == "current" {
			req.Current = ds
		} else {
			req.Historical = ds
		}
	}
	return req, nil
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := s.config.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(c, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := s.service.History(c.Request.Context(), c.Param("table"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": c.Param("table"), "runs": records})
}

// writeError maps error codes to HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeDatasetError:
		status = http.StatusBadRequest
	case errors.CodeRuleInvalid, errors.CodeConfigInvalid, errors.CodeReferenceNotFound:
		status = http.StatusUnprocessableEntity
	case errors.CodeCanceled:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request %s failed: %v", c.Request.URL.Path, err)
	}

	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
