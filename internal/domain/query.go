package domain

// Error codes carried in ErrorResponse.Error.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeRetrievalFailed = "RETRIEVAL_FAILED"
	CodeSynthesisFailed = "SYNTHESIS_FAILED"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query      string `json:"query" validate:"required,notblank,max=2000"`
	MaxSources *int   `json:"maxSources,omitempty" validate:"omitempty,min=1,max=50"`
	MaxTokens  *int   `json:"maxTokens,omitempty" validate:"omitempty,min=1"`
}

// QueryResponse is the successful result of a query.
type QueryResponse struct {
	Answer            string           `json:"answer"`
	AnswerSynthesized bool             `json:"answerSynthesized"`
	CitedDocuments    []CitedDocument  `json:"citedDocuments"`
	Metadata          ResponseMetadata `json:"metadata"`
}

type ResponseMetadata struct {
	TotalChunksRetrieved int   `json:"totalChunksRetrieved"`
	TotalDocumentsCited  int   `json:"totalDocumentsCited"`
	ProcessingTimeMs     int64 `json:"processingTimeMs"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
