package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// QuestionInput is the input schema for the ask and retrieve tools.
type QuestionInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer string `json:"answer"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Context string `json:"context"`
}

// IngestInput is the input schema for the ingest_file tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"path of a text, CSV or PDF file readable by the server"`
}

// IngestOutput is the output schema for the ingest_file tool.
type IngestOutput struct {
	Document string `json:"document"`
	Stored   int    `json:"stored"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the single best matching indexed document as context",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the full text of the indexed document that best matches a question",
	}, s.handleRetrieve)
	if s.load != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_file",
			Description: "Index a file line by line so later questions can use it",
		}, s.handleIngest)
	}
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input QuestionInput) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}
	answer, err := s.agent.Answer(ctx, input.Question)
	if err != nil {
		s.logger.Warn("ask failed", zap.Error(err))
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer}, nil
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input QuestionInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Question == "" {
		return nil, RetrieveOutput{}, errors.New("question is required")
	}
	text, err := s.agent.Retrieve(ctx, input.Question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	return nil, RetrieveOutput{Context: text}, nil
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, errors.New("path is required")
	}
	doc, err := s.load(input.Path)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	stored, err := s.agent.Ingest(ctx, doc)
	if err != nil {
		s.logger.Warn("ingest failed", zap.String("document", doc.ID), zap.Int("stored", stored), zap.Error(err))
		return nil, IngestOutput{Document: doc.ID, Stored: stored}, err
	}
	return nil, IngestOutput{Document: doc.ID, Stored: stored}, nil
}
