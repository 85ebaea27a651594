package llm

// Role names the speaker of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// ChatTurns builds the two-turn conversation every draft uses. An empty
// system prompt is left out.
func ChatTurns(system, user string) []Message {
	turns := make([]Message, 0, 2)
	if system != "" {
		turns = append(turns, Message{Role: RoleSystem, Content: system})
	}
	return append(turns, Message{Role: RoleUser, Content: user})
}

// CompletionRequest is one non-streaming chat completion. A zero
// Temperature means greedy decoding; providers send it explicitly instead
// of deferring to the server default. JSONMode asks the server to constrain
// output to a JSON object when it can.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries only newly generated text, never the prompt.
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int
	OutputTokens int
}
