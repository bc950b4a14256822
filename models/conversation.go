package models

// ConversationTurn is one question/answer exchange kept in conversation memory.
type ConversationTurn struct {
	Question string `json:"question"`
	Response string `json:"response"`
}
