// Package llm composes chat requests from the conversation history and
// sends them to a reply generator.
package llm

import (
	"context"

	"github.com/petems/ushidashi/internal/chatlog"
	"github.com/petems/ushidashi/internal/config"
)

const service = "chat"

// Chat roles.
const (
	RoleSystem    = config.RoleSystem
	RoleUser      = "user"
	RoleAssistant = config.RoleAssistant
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Generator returns exactly one reply to a conversation.
type Generator interface {
	Reply(ctx context.Context, messages []Message) (string, error)
}

// Compose returns the system prompt followed by every history record as a
// message. User turns keep the user role; bot turns get botRole, which
// defaults to system.
func Compose(systemPrompt string, history []chatlog.Record, botRole string) []Message {
	if botRole == "" {
		botRole = RoleSystem
	}
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	for _, r := range history {
		role := RoleUser
		if r.Author == chatlog.Bot {
			role = botRole
		}
		msgs = append(msgs, Message{Role: role, Content: r.Text})
	}
	return msgs
}
