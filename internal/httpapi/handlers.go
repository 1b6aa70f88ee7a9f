package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"rag-agent/internal/domain"
	"rag-agent/internal/source"
)

// Agent is the subset of service.Agent served over HTTP.
type Agent interface {
	Ingest(ctx context.Context, doc domain.Document) (int, error)
	Answer(ctx context.Context, query string) (string, error)
	Retrieve(ctx context.Context, query string) (string, error)
}

type documentRequest struct {
	Identifier string `json:"identifier" validate:"required,max=512"`
	Text       string `json:"text"`
}

type documentResponse struct {
	Stored int `json:"stored"`
}

type queryRequest struct {
	Query string `json:"query" validate:"required"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type retrieveResponse struct {
	Context string `json:"context"`
}

// Handler serves the agent operations.
type Handler struct {
	agent  Agent
	logger *zap.Logger
}

func NewHandler(agent Agent, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agent: agent, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// IngestDocument splits the posted text into lines and stores one point per line.
func (h *Handler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	stored, err := h.agent.Ingest(r.Context(), source.FromText(req.Identifier, req.Text))
	if err != nil {
		h.logger.Warn("ingest failed", zap.String("document", req.Identifier), zap.Int("stored", stored), zap.Error(err))
		writeAgentError(w, err, h.logger)
		return
	}
	_ = writeJSON(w, http.StatusCreated, documentResponse{Stored: stored})
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	answer, err := h.agent.Answer(r.Context(), req.Query)
	if err != nil {
		writeAgentError(w, err, h.logger)
		return
	}
	_ = writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	text, err := h.agent.Retrieve(r.Context(), req.Query)
	if err != nil {
		writeAgentError(w, err, h.logger)
		return
	}
	_ = writeJSON(w, http.StatusOK, retrieveResponse{Context: text})
}
