package handlers

import (
	"net/http"

	"clausewise-backend/apperr"
	"clausewise-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errInvalidDocumentID = apperr.InvalidInput("document", "invalid document_id format")
	errMissingFile       = apperr.InvalidInput("document", "file is required")
)

// DocumentHandler handles HTTP requests for the document registry
type DocumentHandler struct {
	contracts *service.ContractService
	logger    *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(contracts *service.ContractService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{contracts: contracts, logger: logger}
}

// RegisterRoutes attaches the document routes
func (h *DocumentHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/documents", h.UploadDocument)
	api.GET("/documents/:id", h.GetDocument)
	api.DELETE("/documents/:id", h.DeleteDocument)
	api.GET("/session/documents", h.ListDocuments)
}

// UploadDocument handles POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	filename, mimeType, data, ok, err := readUpload(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !ok {
		respondError(c, h.logger, errMissingFile)
		return
	}

	doc, err := h.contracts.RegisterDocument(c.Request.Context(), service.RegisterDocumentRequest{
		SessionID: c.GetHeader(SessionHeader),
		Filename:  filename,
		MimeType:  mimeType,
		Data:      data,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, errInvalidDocumentID)
		return
	}

	doc, err := h.contracts.GetDocument(c.Request.Context(), c.GetHeader(SessionHeader), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, errInvalidDocumentID)
		return
	}

	if err := h.contracts.DeleteDocument(c.Request.Context(), c.GetHeader(SessionHeader), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListDocuments handles GET /api/session/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.contracts.ListDocuments(c.Request.Context(), c.GetHeader(SessionHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, docs)
}
