package service

import "rag-agent/internal/domain"

// DefaultSystemPrompt keeps the model on the retrieved context.
const DefaultSystemPrompt = `You are a careful data analyst who works with comma-delimited records and short text snippets.

Read the provided context and use it to answer the user's question.

Be concise. If the context does not contain the answer, do not invent one; reply "I don't know."`

// ContextSeparator sits between the user's question and the retrieved context.
const ContextSeparator = "\n\nProvided context:\n"

// Defaults applied to zero Settings fields.
const (
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultChatModel      = "gpt-4o"
	DefaultDimensions     = 1536
)

// Settings are the fixed model identifiers and prompt used by the agent.
type Settings struct {
	EmbeddingModel string
	ChatModel      string
	Dimensions     int
	SystemPrompt   string
}

func (s Settings) withDefaults() Settings {
	if s.EmbeddingModel == "" {
		s.EmbeddingModel = DefaultEmbeddingModel
	}
	if s.ChatModel == "" {
		s.ChatModel = DefaultChatModel
	}
	if s.Dimensions <= 0 {
		s.Dimensions = DefaultDimensions
	}
	if s.SystemPrompt == "" {
		s.SystemPrompt = DefaultSystemPrompt
	}
	return s
}

func buildMessages(systemPrompt, query, retrieved string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: query + ContextSeparator + retrieved},
	}
}
