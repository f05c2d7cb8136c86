package llm

import (
	"context"
	"io"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ImageURL is a vision attachment, passed as a data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart is one element of a multi-part user message (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Message is a single chat message. Content is either a plain string or a
// []ContentPart when an image rides along.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// TextMessage builds a plain text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// VisionMessage builds a user message carrying a caption and one image.
func VisionMessage(text, dataURL string) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &ImageURL{URL: dataURL, Detail: "high"}},
		},
	}
}

// CompletionRequest is one chat-completions call.
type CompletionRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []Message
}

// ChatClient is the interface the pipeline stages depend on. Complete returns
// the assistant message content; Stream returns the raw SSE body for
// passthrough to a browser.
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Stream(ctx context.Context, req CompletionRequest) (io.ReadCloser, error)
}
