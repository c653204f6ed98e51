package dialogue

// ActionKind enumerates outbound instructions for the transport.
type ActionKind int

const (
	// ActionText sends a plain or Markdown text message.
	ActionText ActionKind = iota + 1
	// ActionChoice sends a text with a single row of choice buttons.
	ActionChoice
	// ActionDocument sends the first existing document among Candidates.
	ActionDocument
)

// String returns the log name of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionText:
		return "text"
	case ActionChoice:
		return "choice"
	case ActionDocument:
		return "document"
	}
	return "unknown"
}

// Choice is a single button of a choice prompt.
type Choice struct {
	Label string
	Token string
}

// DocumentRequest describes the document to deliver and what to say if none exists.
type DocumentRequest struct {
	Arcanum    int
	Candidates []string
	Caption    string
	// MissingText is sent instead when no candidate resolves.
	MissingText string
}

// Action is one outbound instruction. Handlers return actions in delivery order.
type Action struct {
	Kind     ActionKind
	Text     string
	Markdown bool
	Choices  []Choice
	Document *DocumentRequest
}

func textAction(text string) Action {
	return Action{Kind: ActionText, Text: text}
}

func choiceAction(text string, choices ...Choice) Action {
	return Action{Kind: ActionChoice, Text: text, Choices: choices}
}
