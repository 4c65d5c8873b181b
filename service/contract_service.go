package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/cache"
	"clausewise-backend/flow"
	"clausewise-backend/ingest"
	"clausewise-backend/models"
	"clausewise-backend/repository"
	"clausewise-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSessionNotFound is returned when a session holds no analysis
	ErrSessionNotFound = errors.New("no analysis for session")
	// ErrDocumentNotFound is returned for an unknown document id
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentRegistryDisabled is returned when no database or storage is configured
	ErrDocumentRegistryDisabled = errors.New("document registry is not configured")
)

const (
	defaultClauseConcurrency = 4
	defaultHistoryLimit      = 10
)

// DocumentStore persists registered documents
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.Document, error)
	UpdateAnalysis(ctx context.Context, id uuid.UUID, analysis *models.DocumentAnalysis) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContractService runs the contract review actions
type ContractService struct {
	invoker           *flow.Invoker
	sessions          cache.SessionStore
	documents         DocumentStore
	storage           storage.Storage
	logger            *zap.Logger
	clauseConcurrency int
	historyLimit      int
	now               func() time.Time
}

// ContractServiceOption is a functional option for ContractService
type ContractServiceOption func(*ContractService)

// WithInvoker sets the flow invoker
func WithInvoker(inv *flow.Invoker) ContractServiceOption {
	return func(s *ContractService) {
		s.invoker = inv
	}
}

// WithSessionStore sets the session store
func WithSessionStore(store cache.SessionStore) ContractServiceOption {
	return func(s *ContractService) {
		s.sessions = store
	}
}

// WithDocumentStore sets the document registry
func WithDocumentStore(docs DocumentStore) ContractServiceOption {
	return func(s *ContractService) {
		s.documents = docs
	}
}

// WithStorage sets the blob storage for registered documents
func WithStorage(st storage.Storage) ContractServiceOption {
	return func(s *ContractService) {
		s.storage = st
	}
}

// WithContractLogger sets the logger
func WithContractLogger(l *zap.Logger) ContractServiceOption {
	return func(s *ContractService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClauseConcurrency bounds concurrent clause scoring calls
func WithClauseConcurrency(n int) ContractServiceOption {
	return func(s *ContractService) {
		if n > 0 {
			s.clauseConcurrency = n
		}
	}
}

// WithHistoryLimit bounds the chat history sent with a question
func WithHistoryLimit(n int) ContractServiceOption {
	return func(s *ContractService) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// NewContractService creates a new contract service. Sessions default to an
// in-memory store.
func NewContractService(opts ...ContractServiceOption) *ContractService {
	s := &ContractService{
		logger:            zap.NewNop(),
		clauseConcurrency: defaultClauseConcurrency,
		historyLimit:      defaultHistoryLimit,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = cache.NewMemoryStore(0)
	}
	return s
}

func (s *ContractService) flows(op string) (*flow.Invoker, error) {
	if s.invoker == nil {
		return nil, apperr.ConfigurationMissing(op, "completion backend")
	}
	return s.invoker, nil
}

// DocumentSource identifies a document either inline or by registry id
type DocumentSource struct {
	DocumentID *uuid.UUID
	Filename   string
	MimeType   string
	Data       []byte
}

func (d DocumentSource) empty() bool {
	return d.DocumentID == nil && len(d.Data) == 0
}

// resolve loads and prepares a document for the completion backend.
// Registered documents must belong to sessionID.
func (s *ContractService) resolve(ctx context.Context, op, sessionID string, src DocumentSource) (*ingest.Document, error) {
	filename, mimeType, data := src.Filename, src.MimeType, src.Data
	if src.DocumentID != nil {
		doc, err := s.GetDocument(ctx, sessionID, *src.DocumentID)
		if err != nil {
			return nil, err
		}
		data, err = storage.ReadAll(ctx, s.storage, doc.StoragePath, ingest.MaxDocumentSize)
		if err != nil {
			return nil, fmt.Errorf("%s: load document %s: %w", op, doc.ID, err)
		}
		filename, mimeType = doc.Filename, doc.MimeType
	}
	if len(data) == 0 {
		return nil, apperr.InvalidInput(op, "document is required")
	}
	return ingest.Prepare(filename, ingest.DetectMIME(filename, mimeType, data), data)
}

// AnalyzeDocumentRequest represents a request to analyze a whole contract
type AnalyzeDocumentRequest struct {
	SessionID string
	Document  DocumentSource
}

// AnalyzeDocumentResult represents the merged analysis
type AnalyzeDocumentResult struct {
	Analysis *models.DocumentAnalysis
}

// AnalyzeDocument categorizes clauses, scores safety and lists precautions
// concurrently. Any failed call fails the whole analysis. On success the
// analysis replaces the session's latest one.
func (s *ContractService) AnalyzeDocument(ctx context.Context, req AnalyzeDocumentRequest) (*AnalyzeDocumentResult, error) {
	const op = "analyze-document"
	inv, err := s.flows(op)
	if err != nil {
		return nil, err
	}
	doc, err := s.resolve(ctx, op, req.SessionID, req.Document)
	if err != nil {
		return nil, err
	}

	var (
		risk        *flow.DocumentRiskOutput
		safety      *flow.DocumentSafetyOutput
		precautions *flow.PrecautionsOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		risk, err = flow.Invoke(gctx, inv, flow.DocumentRisk, doc.Input)
		return err
	})
	g.Go(func() (err error) {
		safety, err = flow.Invoke(gctx, inv, flow.DocumentSafety, doc.Input)
		return err
	})
	g.Go(func() (err error) {
		precautions, err = flow.Invoke(gctx, inv, flow.DocumentPrecautions, doc.Input)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &models.DocumentAnalysis{
		Risk:        risk.ToModel(),
		Safety:      safety.ToModel(),
		Precautions: precautions.Precautions,
		Filename:    doc.Filename,
		MimeType:    doc.MIMEType,
		AnalyzedAt:  s.now().UTC(),
	}
	if err := analysis.Risk.CheckPartition(); err != nil {
		return nil, apperr.New(apperr.KindUpstreamContractViolation, op, err)
	}

	s.logger.Info("document analyzed",
		zap.String("session", req.SessionID),
		zap.String("mime", doc.MIMEType),
		zap.Int("high", len(analysis.Risk.HighRiskClauses)),
		zap.Int("medium", len(analysis.Risk.MediumRiskClauses)),
		zap.Int("low", len(analysis.Risk.LowRiskClauses)),
		zap.Float64("safety", analysis.Safety.SafetyScore))

	if req.SessionID != "" {
		if err := s.sessions.SaveAnalysis(ctx, req.SessionID, analysis); err != nil {
			s.logger.Warn("failed to store session analysis", zap.String("session", req.SessionID), zap.Error(err))
		}
	}
	if id := req.Document.DocumentID; id != nil && s.documents != nil {
		if err := s.documents.UpdateAnalysis(ctx, *id, analysis); err != nil {
			s.logger.Warn("failed to record document analysis", zap.Stringer("document", id), zap.Error(err))
		}
	}

	return &AnalyzeDocumentResult{Analysis: analysis}, nil
}

// AnalyzeClauseRiskRequest represents a request to score known clauses
type AnalyzeClauseRiskRequest struct {
	Clauses []models.Clause
}

// AnalyzeClauseRiskResult holds one assessment per clause, in input order
type AnalyzeClauseRiskResult struct {
	Results []models.ClauseRisk
}

// ByID indexes the results by clause id.
func (r *AnalyzeClauseRiskResult) ByID() map[string]models.RiskAssessment {
	out := make(map[string]models.RiskAssessment, len(r.Results))
	for _, cr := range r.Results {
		out[cr.ClauseID] = cr.RiskAssessment
	}
	return out
}

// AnalyzeClauseRisk scores each clause independently. Results are paired
// with their clause by id, never by completion order.
func (s *ContractService) AnalyzeClauseRisk(ctx context.Context, req AnalyzeClauseRiskRequest) (*AnalyzeClauseRiskResult, error) {
	const op = "analyze-clause-risk"
	if len(req.Clauses) == 0 {
		return nil, apperr.InvalidInput(op, "at least one clause is required")
	}
	seen := make(map[string]bool, len(req.Clauses))
	for i, c := range req.Clauses {
		id := strings.TrimSpace(c.ID)
		switch {
		case id == "":
			return nil, apperr.InvalidInput(op, "clause %d has no id", i)
		case seen[id]:
			return nil, apperr.InvalidInput(op, "duplicate clause id %q", id)
		case strings.TrimSpace(c.Text) == "":
			return nil, apperr.InvalidInput(op, "clause %q has no text", id)
		}
		seen[id] = true
	}
	inv, err := s.flows(op)
	if err != nil {
		return nil, err
	}

	results := make([]models.ClauseRisk, len(req.Clauses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.clauseConcurrency)
	for i, c := range req.Clauses {
		g.Go(func() error {
			out, err := flow.Invoke(gctx, inv, flow.ClauseRisk, flow.ClauseRiskInput{Clause: c.Text})
			if err != nil {
				return fmt.Errorf("clause %s: %w", c.ID, err)
			}
			results[i] = models.ClauseRisk{ClauseID: c.ID, RiskAssessment: out.ToModel()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &AnalyzeClauseRiskResult{Results: results}, nil
}

// SummarizeClause summarizes a clause in plain language
func (s *ContractService) SummarizeClause(ctx context.Context, clauseText string, level models.DetailLevel) (*models.Summary, error) {
	inv, err := s.flows(flow.NameSummarizeClause)
	if err != nil {
		return nil, err
	}
	if level == "" {
		level = models.DetailMedium
	}
	out, err := flow.Invoke(ctx, inv, flow.SummarizeClause, flow.SummarizeInput{ClauseText: clauseText, DetailLevel: level})
	if err != nil {
		return nil, err
	}
	return &models.Summary{Summary: out.Summary, BulletPoints: out.BulletPoints}, nil
}

// ExplainClause explains a clause for the given reader
func (s *ContractService) ExplainClause(ctx context.Context, clauseText string, role models.UserRole) (*models.Explanation, error) {
	inv, err := s.flows(flow.NameExplainClause)
	if err != nil {
		return nil, err
	}
	out, err := flow.Invoke(ctx, inv, flow.ExplainClause, flow.ExplainInput{ClauseText: clauseText, UserRole: role})
	if err != nil {
		return nil, err
	}
	return &models.Explanation{Explanation: out.Explanation}, nil
}

// SuggestRewrite proposes a fairer version of a clause
func (s *ContractService) SuggestRewrite(ctx context.Context, clauseText, instruction string) (*models.Rewrite, error) {
	inv, err := s.flows(flow.NameSuggestRewrite)
	if err != nil {
		return nil, err
	}
	out, err := flow.Invoke(ctx, inv, flow.SuggestRewrite, flow.RewriteInput{ClauseText: clauseText, Instruction: instruction})
	if err != nil {
		return nil, err
	}
	return &models.Rewrite{SuggestedRewrite: out.SuggestedRewrite}, nil
}

// PredictOutcome predicts how a clause plays out in a situation
func (s *ContractService) PredictOutcome(ctx context.Context, clauseText, situation string) (*models.Outcome, error) {
	inv, err := s.flows(flow.NamePredictOutcome)
	if err != nil {
		return nil, err
	}
	out, err := flow.Invoke(ctx, inv, flow.PredictOutcome, flow.OutcomeInput{ClauseText: clauseText, Situation: situation})
	if err != nil {
		return nil, err
	}
	return &models.Outcome{PredictedOutcome: out.PredictedOutcome}, nil
}

// AnswerQuestionRequest represents a question about a contract. The context
// is the document if given, else the listed clauses, else the clauses of
// the session's latest analysis.
type AnswerQuestionRequest struct {
	SessionID       string
	Question        string
	Document        DocumentSource
	RelevantClauses []string
}

// AnswerQuestion answers a question and appends the exchange to the
// session conversation.
func (s *ContractService) AnswerQuestion(ctx context.Context, req AnswerQuestionRequest) (*models.Answer, error) {
	const op = flow.NameAnswerQuestion
	inv, err := s.flows(op)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, apperr.InvalidInput(op, "question is required")
	}

	in := flow.AnswerInput{Question: req.Question, RelevantClauses: req.RelevantClauses}
	switch {
	case !req.Document.empty():
		doc, err := s.resolve(ctx, op, req.SessionID, req.Document)
		if err != nil {
			return nil, err
		}
		in.Document, in.DocumentText = doc.Input.Document, doc.Input.Text
	case len(req.RelevantClauses) > 0:
	case req.SessionID != "":
		analysis, err := s.sessions.LatestAnalysis(ctx, req.SessionID)
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			return nil, err
		}
		if analysis != nil {
			for _, c := range analysis.Risk.All() {
				in.RelevantClauses = append(in.RelevantClauses, c.Title+": "+c.Text)
			}
		}
	}
	if in.Document == nil && in.DocumentText == "" && len(in.RelevantClauses) == 0 {
		return nil, apperr.InvalidInput(op, "a document, clauses or an analyzed session is required")
	}

	if req.SessionID != "" && s.historyLimit > 0 {
		history, err := s.sessions.Conversation(ctx, req.SessionID)
		if err != nil {
			s.logger.Warn("failed to load conversation", zap.String("session", req.SessionID), zap.Error(err))
		}
		if len(history) > s.historyLimit {
			history = history[len(history)-s.historyLimit:]
		}
		in.History = history
	}

	out, err := flow.Invoke(ctx, inv, flow.AnswerQuestion, in)
	if err != nil {
		return nil, err
	}

	if req.SessionID != "" {
		err := s.sessions.AppendMessages(ctx, req.SessionID,
			models.ChatMessage{Role: models.ChatRoleUser, Content: req.Question},
			models.ChatMessage{Role: models.ChatRoleAssistant, Content: out.Answer})
		if err != nil {
			s.logger.Warn("failed to append conversation", zap.String("session", req.SessionID), zap.Error(err))
		}
	}
	return &models.Answer{Answer: out.Answer}, nil
}

// LatestAnalysis returns the most recent analysis of a session
func (s *ContractService) LatestAnalysis(ctx context.Context, sessionID string) (*models.DocumentAnalysis, error) {
	analysis, err := s.sessions.LatestAnalysis(ctx, sessionID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return analysis, err
}

// Conversation returns the chat history of a session
func (s *ContractService) Conversation(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return s.sessions.Conversation(ctx, sessionID)
}

// EndSession discards a session's analysis and conversation, and removes
// the documents it registered when the registry is enabled.
func (s *ContractService) EndSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	if s.documents == nil || s.storage == nil || sessionID == "" {
		return nil
	}

	docs, err := s.documents.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to list session documents", zap.String("session", sessionID), zap.Error(err))
		return nil
	}
	for _, doc := range docs {
		if err := s.removeDocument(ctx, doc); err != nil {
			s.logger.Warn("failed to remove session document",
				zap.String("session", sessionID),
				zap.Stringer("document", doc.ID),
				zap.Error(err))
		}
	}
	return nil
}

// RegisterDocumentRequest represents an upload to the document registry
type RegisterDocumentRequest struct {
	SessionID string
	Filename  string
	MimeType  string
	Data      []byte
}

// RegisterDocument validates, stores and records an uploaded contract
func (s *ContractService) RegisterDocument(ctx context.Context, req RegisterDocumentRequest) (*models.Document, error) {
	if s.documents == nil || s.storage == nil {
		return nil, ErrDocumentRegistryDisabled
	}
	mimeType := ingest.DetectMIME(req.Filename, req.MimeType, req.Data)
	prepared, err := ingest.Prepare(req.Filename, mimeType, req.Data)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:        uuid.New(),
		SessionID: req.SessionID,
		Filename:  req.Filename,
		MimeType:  prepared.MIMEType,
		Size:      int64(prepared.Size),
	}
	doc.StoragePath, err = s.storage.Upload(ctx, doc.ID, req.Filename, doc.MimeType, bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if delErr := s.storage.Delete(ctx, doc.StoragePath); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", doc.StoragePath), zap.Error(delErr))
		}
		return nil, fmt.Errorf("record document: %w", err)
	}

	s.logger.Info("document registered",
		zap.Stringer("document", doc.ID),
		zap.String("mime", doc.MimeType),
		zap.Int64("size", doc.Size))
	return doc, nil
}

// GetDocument retrieves a document registered in the given session.
// Documents of other sessions are reported as not found.
func (s *ContractService) GetDocument(ctx context.Context, sessionID string, id uuid.UUID) (*models.Document, error) {
	if s.documents == nil || s.storage == nil {
		return nil, ErrDocumentRegistryDisabled
	}
	doc, err := s.documents.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	if doc.SessionID != sessionID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments returns the documents registered in a session, newest first
func (s *ContractService) ListDocuments(ctx context.Context, sessionID string) ([]*models.Document, error) {
	if s.documents == nil || s.storage == nil {
		return nil, ErrDocumentRegistryDisabled
	}
	return s.documents.ListBySession(ctx, sessionID)
}

// DeleteDocument removes a document of the given session from the registry
// and from blob storage.
func (s *ContractService) DeleteDocument(ctx context.Context, sessionID string, id uuid.UUID) error {
	doc, err := s.GetDocument(ctx, sessionID, id)
	if err != nil {
		return err
	}
	if err := s.removeDocument(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.Stringer("document", doc.ID))
	return nil
}

// removeDocument drops the record before the blob so a failed blob delete
// leaves no reachable document behind.
func (s *ContractService) removeDocument(ctx context.Context, doc *models.Document) error {
	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("delete document record: %w", err)
	}
	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.Warn("failed to remove document blob", zap.String("path", doc.StoragePath), zap.Error(err))
	}
	return nil
}
