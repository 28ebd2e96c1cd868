package domain

// QueryRequest is the input to the RAG query engine.
type QueryRequest struct {
	// Query is the user's question.
	Query string

	// SessionID continues an existing conversation. A new session is
	// created when empty or unknown.
	SessionID string

	// UserID binds newly created sessions to a user.
	UserID string

	// DocumentID restricts retrieval to a single document when set.
	DocumentID string
}

// Source attributes part of an answer to an indexed document.
type Source struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	ChunkText      string  `json:"chunk_text"`
	RelevanceScore float64 `json:"relevance_score"`
}

// QueryResult is the engine's answer.
type QueryResult struct {
	Response  string   `json:"response"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}

// FallbackResponse is the reply used when a question without document
// context cannot be answered.
const FallbackResponse = "I'm a financial assistant specialized in finance-related topics. " +
	"I can only answer questions related to finance, accounting, investments, economics, banking, " +
	"and other financial matters. Please ask me a question related to finance, " +
	"or upload financial documents for more specific assistance."

// GroundedSystemPrompt is the default instruction block placed before
// retrieved document excerpts.
const GroundedSystemPrompt = `You are a helpful financial assistant. Your role is to provide accurate, 
context-aware answers to financial questions based on the provided documents.

Guidelines:
- Answer questions based ONLY on the provided context from financial documents
- If the context doesn't contain enough information to answer the question, clearly state that
- Be concise and professional in your responses
- Cite specific information from the documents when relevant
- If asked about topics not covered in the documents, politely indicate the limitation`

// NoContextPrompt is the default template for questions no document
// matched. It has a single %s placeholder for the question.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const NoContextPrompt = `You are a financial assistant. Analyze the following question and respond accordingly:

1. First, determine if the question is related to finance, accounting, economics, investments, banking, or financial topics.
2. If it IS finance-related: Provide a helpful, accurate answer using your general knowledge. Keep it concise and professional. If specific data would help, mention that uploading documents would provide more accurate answers.
3. If it is NOT finance-related: Politely explain that you only handle finance-related questions and ask the user to ask about finance topics.

Question: %s

Your response:`
