package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/ingest"
	"clausewise-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SessionHeader carries the conversation session id.
const SessionHeader = "X-Session-ID"

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondFail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondError maps service errors onto statuses. Unclassified errors are
// logged and reported without detail.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrDocumentNotFound):
		respondFail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	case errors.Is(err, service.ErrDocumentRegistryDisabled):
		respondFail(c, http.StatusServiceUnavailable, "REGISTRY_DISABLED", err.Error())
		return
	}

	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindInvalidInput:
		status = http.StatusBadRequest
	case apperr.KindConfigurationMissing:
		status = http.StatusServiceUnavailable
	case apperr.KindUpstreamUnavailable, apperr.KindUpstreamContractViolation:
		status = http.StatusBadGateway
	case apperr.KindTimeout:
		status = http.StatusGatewayTimeout
	}

	// Upstream error text can carry request URLs and provider detail.
	message := err.Error()
	switch kind {
	case apperr.KindUnknown:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		message = "internal error"
	case apperr.KindUpstreamUnavailable:
		logger.Warn("upstream failed", zap.String("path", c.FullPath()), zap.Error(apperr.Redact(err)))
		message = "upstream service unavailable"
	case apperr.KindUpstreamContractViolation:
		message = "upstream returned an invalid response"
	case apperr.KindTimeout:
		logger.Warn("upstream timed out", zap.String("path", c.FullPath()), zap.Error(apperr.Redact(err)))
		message = "upstream call timed out"
	}
	respondFail(c, status, kind.String(), message)
}

// invalidBody turns a binding failure into an InvalidInput error naming the
// offending fields.
func invalidBody(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
		}
		return apperr.InvalidInput("request", "invalid fields: %s", strings.Join(fields, ", "))
	}
	return apperr.InvalidInput("request", "malformed body: %v", err)
}

// readUpload reads the "file" form field. ok is false when the field is
// absent.
func readUpload(c *gin.Context) (filename, mimeType string, data []byte, ok bool, err error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", "", nil, false, nil
		}
		return "", "", nil, false, apperr.InvalidInput("upload", "%v", err)
	}
	if fileHeader.Size > ingest.MaxDocumentSize {
		return "", "", nil, false, apperr.InvalidInput("upload", "file size exceeds maximum of %d bytes", ingest.MaxDocumentSize)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, false, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, ingest.MaxDocumentSize+1))
	if err != nil {
		return "", "", nil, false, fmt.Errorf("read upload: %w", err)
	}
	return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, true, nil
}

// RequestLogger logs each request at info with its latency.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("session", c.GetHeader(SessionHeader)))
	}
}

// NewRouter wires every handler onto a gin engine.
func NewRouter(contracts *service.ContractService, lawyers *service.LawyerService, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	NewContractHandler(contracts, logger).RegisterRoutes(api)
	NewDocumentHandler(contracts, logger).RegisterRoutes(api)
	NewLawyerHandler(lawyers, logger).RegisterRoutes(api)
	return r
}
