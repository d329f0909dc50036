// Package types defines the domain types shared by the DocuMind client packages.
//
//nolint:revive // types is a common Go package naming convention
package types

// Role identifies the author of a conversation message.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SourceChunk is a retrieved passage attached to an assistant answer.
// Immutable once received.
type SourceChunk struct {
	// DocumentID is the id of the document the passage came from.
	DocumentID string `json:"document_id" yaml:"document_id"`
	// DocumentName is the original filename of that document.
	DocumentName string `json:"document_name" yaml:"document_name"`
	// Content is the passage text.
	Content string `json:"content" yaml:"content"`
	// SectionRef is the page or section label, when the server knows it.
	SectionRef *string `json:"page_or_section" yaml:"page_or_section,omitempty"`
	// ChunkIndex is the position of the passage within its document.
	ChunkIndex int `json:"chunk_index" yaml:"chunk_index"`
	// RelevanceScore is the retrieval score in [0, 1].
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// ConversationMessage is one entry of the ordered conversation.
type ConversationMessage struct {
	ID        string        `json:"id" yaml:"id"`
	Role      Role          `json:"role" yaml:"role"`
	Content   string        `json:"content" yaml:"content"`
	Sources   []SourceChunk `json:"sources,omitempty" yaml:"sources,omitempty"`
	Streaming bool          `json:"streaming" yaml:"streaming"`
}

// HistoryMessage is a settled turn message as sent to the server.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question    string           `json:"question"`
	ChatHistory []HistoryMessage `json:"chat_history"`
}
