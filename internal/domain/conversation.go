package domain

import (
	"encoding/json"
	"time"
)

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Content limits for chat messages. Inbound is the request-side cap;
// stored assistant output beyond MaxStoredContentLen is truncated.
const (
	MaxInboundContentLen = 2000
	MaxStoredContentLen  = 10000
)

// Conversation groups the chat turns of one owner. UpdatedAt is bumped once
// per chat turn.
type Conversation struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single stored turn in a conversation. OwnerID is denormalized
// from the conversation for audit queries.
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversationId"`
	OwnerID        string       `json:"ownerId"`
	Role           string       `json:"role"`
	Content        string       `json:"content"`
	ToolCalls      []ToolRecord `json:"toolCalls,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// ToolRecord captures one tool invocation made during a chat turn. Exactly
// one of Result or Error is set. It is embedded in the stored assistant
// message, not persisted on its own.
type ToolRecord struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ResultJSON renders the record's outcome as JSON for feeding back to the
// model.
func (r ToolRecord) ResultJSON() string {
	if r.Error != "" {
		data, _ := json.Marshal(map[string]string{"error": r.Error})
		return string(data)
	}
	data, err := json.Marshal(r.Result)
	if err != nil || r.Result == nil {
		return "{}"
	}
	return string(data)
}
