package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible
	// default or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptGroundedSystem holds the instructions placed before retrieved
	// context. It has no format placeholders.
	PromptGroundedSystem = "grounded_system"

	// PromptNoContext classifies and answers a question when no documents
	// matched. It expects a single %s placeholder for the question.
	PromptNoContext = "no_context"

	// PromptFallback is the static reply used when the no-context call fails.
	PromptFallback = "fallback"
)
