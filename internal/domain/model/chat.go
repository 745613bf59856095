//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

const (
	// DefaultPromptTemplate is sent when the user leaves the prompt template blank.
	DefaultPromptTemplate = "You are an AI assistant for educational content. Answer questions based on the provided context."
	// FallbackReply is shown when the backend answer carries no usable text.
	FallbackReply = "I'm sorry, I couldn't generate a response right now."
	// ChatErrorReply is shown when the chat request itself fails.
	ChatErrorReply = "Sorry, I encountered an error. Please try again."
)

// ChatMessage is one exchange in a module's chat history.
type ChatMessage struct {
	Query     string `json:"query"`
	Response  string `json:"response"`
	Role      string `json:"role,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatHistory is the persisted chat of a module.
type ChatHistory struct {
	ModuleID    string        `json:"moduleId"`
	ChatHistory []ChatMessage `json:"chatHistory"`
}

// ChatRequest is the body of chat and RAG prompt calls.
type ChatRequest struct {
	Message          string   `json:"message"`
	PromptTemplate   string   `json:"llm_prompt_template"`
	ContextDocuments []string `json:"context_documents"`
}

// WithDefaults fills the prompt template and context documents when unset.
func (r ChatRequest) WithDefaults() ChatRequest {
	if r.PromptTemplate == "" {
		r.PromptTemplate = DefaultPromptTemplate
	}
	if r.ContextDocuments == nil {
		r.ContextDocuments = []string{}
	}
	return r
}

// ChatTurn is a rendered pair of user message and assistant reply.
type ChatTurn struct {
	Message string
	Reply   string
	Failed  bool
}
