package models

type HealthResponse struct {
	Response string `json:"response"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatsResponse struct {
	Chunks int `json:"chunks"`
}
