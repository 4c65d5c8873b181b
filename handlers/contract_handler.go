package handlers

import (
	"net/http"

	"clausewise-backend/models"
	"clausewise-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContractHandler handles HTTP requests for contract analysis
type ContractHandler struct {
	contracts *service.ContractService
	logger    *zap.Logger
}

// NewContractHandler creates a new contract handler
func NewContractHandler(contracts *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, logger: logger}
}

// RegisterRoutes attaches the contract routes
func (h *ContractHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/contracts/sample", h.SampleContract)
	api.POST("/contracts/analyze", h.AnalyzeDocument)
	api.GET("/session/analysis", h.LatestAnalysis)
	api.GET("/session/conversation", h.Conversation)
	api.DELETE("/session", h.EndSession)

	api.POST("/clauses/risk", h.AnalyzeClauseRisk)
	api.POST("/clauses/summarize", h.SummarizeClause)
	api.POST("/clauses/explain", h.ExplainClause)
	api.POST("/clauses/rewrite", h.SuggestRewrite)
	api.POST("/clauses/outcome", h.PredictOutcome)
	api.POST("/questions", h.AnswerQuestion)
}

// SampleContract handles GET /api/contracts/sample
func (h *ContractHandler) SampleContract(c *gin.Context) {
	respondOK(c, http.StatusOK, models.SampleContract())
}

// documentSource reads either an uploaded file or a document_id form value.
func documentSource(c *gin.Context, documentID string) (service.DocumentSource, error) {
	filename, mimeType, data, ok, err := readUpload(c)
	if err != nil {
		return service.DocumentSource{}, err
	}
	if ok {
		return service.DocumentSource{Filename: filename, MimeType: mimeType, Data: data}, nil
	}
	if documentID == "" {
		return service.DocumentSource{}, nil
	}
	id, err := uuid.Parse(documentID)
	if err != nil {
		return service.DocumentSource{}, errInvalidDocumentID
	}
	return service.DocumentSource{DocumentID: &id}, nil
}

// AnalyzeDocument handles POST /api/contracts/analyze
func (h *ContractHandler) AnalyzeDocument(c *gin.Context) {
	src, err := documentSource(c, c.PostForm("document_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.contracts.AnalyzeDocument(c.Request.Context(), service.AnalyzeDocumentRequest{
		SessionID: c.GetHeader(SessionHeader),
		Document:  src,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, result.Analysis)
}

// LatestAnalysis handles GET /api/session/analysis
func (h *ContractHandler) LatestAnalysis(c *gin.Context) {
	analysis, err := h.contracts.LatestAnalysis(c.Request.Context(), c.GetHeader(SessionHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, analysis)
}

// Conversation handles GET /api/session/conversation
func (h *ContractHandler) Conversation(c *gin.Context) {
	msgs, err := h.contracts.Conversation(c.Request.Context(), c.GetHeader(SessionHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, msgs)
}

// EndSession handles DELETE /api/session
func (h *ContractHandler) EndSession(c *gin.Context) {
	if err := h.contracts.EndSession(c.Request.Context(), c.GetHeader(SessionHeader)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnalyzeClauseRiskRequest represents the request body for clause scoring.
// Without clauses the sample contract is scored.
type AnalyzeClauseRiskRequest struct {
	Clauses []models.Clause `json:"clauses"`
}

// AnalyzeClauseRisk handles POST /api/clauses/risk
func (h *ContractHandler) AnalyzeClauseRisk(c *gin.Context) {
	var req AnalyzeClauseRiskRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.logger, invalidBody(err))
			return
		}
	}
	if req.Clauses == nil {
		req.Clauses = models.SampleContract().Clauses
	}

	result, err := h.contracts.AnalyzeClauseRisk(c.Request.Context(), service.AnalyzeClauseRiskRequest{Clauses: req.Clauses})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result.Results)
}

// SummarizeRequest represents the request body for a clause summary
type SummarizeRequest struct {
	ClauseText  string             `json:"clause_text" binding:"required"`
	DetailLevel models.DetailLevel `json:"detail_level"`
}

// SummarizeClause handles POST /api/clauses/summarize
func (h *ContractHandler) SummarizeClause(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}
	result, err := h.contracts.SummarizeClause(c.Request.Context(), req.ClauseText, req.DetailLevel)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ExplainRequest represents the request body for a role explanation
type ExplainRequest struct {
	ClauseText string          `json:"clause_text" binding:"required"`
	UserRole   models.UserRole `json:"user_role" binding:"required"`
}

// ExplainClause handles POST /api/clauses/explain
func (h *ContractHandler) ExplainClause(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}
	result, err := h.contracts.ExplainClause(c.Request.Context(), req.ClauseText, req.UserRole)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// RewriteRequest represents the request body for a rewrite suggestion
type RewriteRequest struct {
	ClauseText         string `json:"clause_text" binding:"required"`
	RewriteInstruction string `json:"rewrite_instruction"`
}

// SuggestRewrite handles POST /api/clauses/rewrite
func (h *ContractHandler) SuggestRewrite(c *gin.Context) {
	var req RewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}
	result, err := h.contracts.SuggestRewrite(c.Request.Context(), req.ClauseText, req.RewriteInstruction)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// OutcomeRequest represents the request body for an outcome prediction
type OutcomeRequest struct {
	ClauseText string `json:"clause_text" binding:"required"`
	Situation  string `json:"situation" binding:"required"`
}

// PredictOutcome handles POST /api/clauses/outcome
func (h *ContractHandler) PredictOutcome(c *gin.Context) {
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}
	result, err := h.contracts.PredictOutcome(c.Request.Context(), req.ClauseText, req.Situation)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// QuestionRequest represents the JSON body for a question
type QuestionRequest struct {
	Question        string   `json:"question" form:"question" binding:"required"`
	DocumentID      string   `json:"document_id" form:"document_id"`
	RelevantClauses []string `json:"relevant_clauses" form:"relevant_clauses"`
}

// AnswerQuestion handles POST /api/questions. The body is JSON, or a
// multipart form carrying the contract as "file".
func (h *ContractHandler) AnswerQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}
	src, err := documentSource(c, req.DocumentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.contracts.AnswerQuestion(c.Request.Context(), service.AnswerQuestionRequest{
		SessionID:       c.GetHeader(SessionHeader),
		Question:        req.Question,
		Document:        src,
		RelevantClauses: req.RelevantClauses,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
