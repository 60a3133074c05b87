package valueobjects

import "errors"

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether the role is one of the known conversation roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single role-tagged entry in a branch's conversation log.
// Messages are immutable once appended and are never shared across branches.
type Message struct {
	Role    Role   `json:"role" dynamodbav:"Role"`
	Content string `json:"content" dynamodbav:"Content"`
}

// NewMessage creates a validated message
func NewMessage(role Role, content string) (Message, error) {
	if !role.IsValid() {
		return Message{}, errors.New("message role must be system, user, or assistant")
	}
	return Message{Role: role, Content: content}, nil
}

// MessageLog is the append-only ordered message sequence owned by one branch.
// Entries are only ever appended; existing entries are never reordered,
// rewritten, or removed.
type MessageLog []Message

// Append returns a new log with msg added at the tail. The receiver is not
// mutated, so a stale copy can be retried safely after a version conflict.
func (l MessageLog) Append(msg Message) MessageLog {
	out := make(MessageLog, len(l), len(l)+1)
	copy(out, l)
	return append(out, msg)
}

// Prefix returns the first n messages, or the whole log if it is shorter.
func (l MessageLog) Prefix(n int) MessageLog {
	if n >= len(l) {
		return l
	}
	return l[:n]
}

// IsEmpty reports whether the log has no messages
func (l MessageLog) IsEmpty() bool {
	return len(l) == 0
}
