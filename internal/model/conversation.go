package model

// Role tags a conversation message. Repair is internal bookkeeping for
// turns appended by the repair loop; providers have no such role, so it
// maps to "user" on every wire.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleRepair Role = "repair"
)

// Wire returns the role string sent to model backends.
func (r Role) Wire() string {
	if r == RoleRepair {
		return string(RoleUser)
	}
	return string(r)
}

// Message is one role-tagged turn of a model conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered message state passed to a provider. It is
// created fresh per extraction run and grows by one message per repair
// attempt; it is never reset mid-run.
type Conversation []Message

// NewConversation seeds a conversation with the system and first user turn.
func NewConversation(system, user string) Conversation {
	return Conversation{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// Append returns the conversation with one more message. The original
// backing array may be shared; callers treat conversations as values.
func (c Conversation) Append(role Role, content string) Conversation {
	return append(c, Message{Role: role, Content: content})
}

// System returns the content of the first system message, or "".
func (c Conversation) System() string {
	for _, m := range c {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// Turns returns the non-system messages in order.
func (c Conversation) Turns() []Message {
	out := make([]Message, 0, len(c))
	for _, m := range c {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}
