package models

// CohereEmbedRequest is the body of Cohere's /v1/embed endpoint.
type CohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	InputType string   `json:"input_type,omitempty"`
	Truncate  string   `json:"truncate,omitempty"`
}

// CohereEmbedResponse carries one embedding per input text, in input order.
type CohereEmbedResponse struct {
	ID         string      `json:"id"`
	Embeddings [][]float32 `json:"embeddings"`
	Message    string      `json:"message,omitempty"`
}
