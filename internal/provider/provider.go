// Package provider implements the generative service interface and clients.
package provider

import (
	"context"
)

// LLMProvider is the interface for generative text clients.
type LLMProvider interface {
	// Chat sends a completion request and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// DefaultModel returns the configured default model.
	DefaultModel() string
}

// ChatRequest contains the parameters for a completion request.
type ChatRequest struct {
	System      string
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatResponse contains the response from a completion request.
type ChatResponse struct {
	Content    string
	StopReason string
	Usage      Usage
}

// Message represents a chat message. A user message may carry attachments,
// which the client renders as mixed content blocks in a single turn.
type Message struct {
	Role        string
	Content     string
	Attachments []Attachment
}

// Attachment is an image or document sent alongside a user message.
type Attachment struct {
	Kind      string // "image" or "document"
	MediaType string // e.g. "image/png", "application/pdf"
	Data      string // base64-encoded payload
}

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
