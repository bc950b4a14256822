package models

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}
