package constant

const (
	TurnRoleSystem    = "system"
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

const (
	FeedbackVerdictGood    = "good"
	FeedbackVerdictNeutral = "neutral"
	FeedbackVerdictBad     = "bad"
)

// DefaultSystemPrompt seeds every conversation. Overridable via SYSTEM_PROMPT.
const DefaultSystemPrompt = "You are an expert in public speaking, and you know how to create engaging and powerful talks. You understand how to structure them, and put them in simple language. Help me create a new talk by starting a conversation with me about what the talk will be about."

// GreetingTemplate takes the current application version.
const GreetingTemplate = "Hello! I'm the Space Cadets expert (v%s). How can I help you today?"

const (
	ApologyMessage           = "Sorry, there was an error processing your request."
	RegenerateApologyMessage = "Sorry, there was an error regenerating the response."

	// RetryPrefix marks answers produced by bad-feedback regeneration.
	RetryPrefix = "Trying again... "
)
