package domain

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is the provider-agnostic chat message shape used by the
// completion integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is one entry of a rendered conversation. ImageURL and AudioURL are
// empty unless the corresponding media was produced.
type Message struct {
	Role     string
	Content  string
	ImageURL string
	AudioURL string
}

// ChatRequest is the wire payload posted to /chat. GenerateImage is the
// client's own guess and is never trusted by the server.
type ChatRequest struct {
	Message       string `json:"message"`
	GenerateImage *bool  `json:"generate_image,omitempty"`
}

// ChatResponse is the wire payload returned by /chat on success.
type ChatResponse struct {
	Text     string  `json:"text"`
	ImageURL *string `json:"imageUrl"`
	AudioURL *string `json:"audioUrl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WantsImage reports whether a message asks for an image: the lowercased text
// must contain both "generate" and "image".
func WantsImage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "generate") && strings.Contains(lower, "image")
}
