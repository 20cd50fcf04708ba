package chat

// ChatSendEvent submits a new user message to the conversation. It is an
// external input: the terminal UI or a bridge client fires it.
type ChatSendEvent struct {
	Text string `json:"text"`
}

func (e *ChatSendEvent) GetId() string {
	return "chat.send"
}

type ChatResponseStartedEvent struct{}

func (e *ChatResponseStartedEvent) GetId() string {
	return "chat.response_started"
}

// ChatFragmentEvent carries one text fragment of the streamed reply, in the
// order the backend emitted it.
type ChatFragmentEvent struct {
	Fragment string `json:"fragment"`
}

func (e *ChatFragmentEvent) GetId() string {
	return "chat.fragment"
}

// ChatCompletedEvent fires once the full reply has been streamed and the
// assistant turn has been appended to the conversation store.
type ChatCompletedEvent struct {
	FullText  string `json:"full_text"`
	TurnCount int    `json:"turn_count"`
}

func (e *ChatCompletedEvent) GetId() string {
	return "chat.completed"
}

type ChatFailedEvent struct {
	Message string `json:"message"`
}

func (e *ChatFailedEvent) GetId() string {
	return "chat.failed"
}
