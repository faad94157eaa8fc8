package conversation

import "time"

// DefaultWindow is the number of most recent messages kept per conversation
// and sent to the completion provider.
const DefaultWindow = 12

// Role identifies who authored a message in a conversation.
type Role string

// Role constants. The system directive is never part of a conversation,
// so there is no system role here.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single turn. Messages are immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the ordered list of messages of one conversation, oldest first.
type History []Message

// Clone returns a copy of h. The result is never nil.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}

// Window returns a copy of the most recent max messages of h, dropping
// from the oldest end. A non-positive max yields an empty history.
func Window(h History, max int) History {
	if max <= 0 {
		return History{}
	}
	if len(h) > max {
		h = h[len(h)-max:]
	}
	return h.Clone()
}

// appendWindowed appends msg to a copy of h and windows the result.
func appendWindowed(h History, msg Message, max int) History {
	next := make(History, 0, len(h)+1)
	next = append(next, h...)
	next = append(next, msg)
	return Window(next, max)
}

// Record is a persisted conversation. Owner is never serialized to clients.
type Record struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	History   History   `json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.History = r.History.Clone()
	return r
}
