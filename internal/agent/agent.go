// Package agent orchestrates chat turns: provider calls, tool execution,
// keyword fallback, and conversation persistence.
package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/llm"
	"github.com/soyeahso/taskdeck/internal/logging"
	"github.com/soyeahso/taskdeck/internal/store"
	"github.com/soyeahso/taskdeck/internal/tools"
)

// Reply sources.
const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

// Config configures the chat agent.
type Config struct {
	Model        string
	HistoryLimit int
}

// ChatResult is the outcome of processing one chat turn.
type ChatResult struct {
	ConversationID int64               `json:"conversationId"`
	Response       string              `json:"response"`
	ToolCalls      []domain.ToolRecord `json:"toolCalls"`
	Source         string              `json:"source"`
	Model          string              `json:"model,omitempty"`
	Duration       time.Duration       `json:"duration"`
}

// ToolEventFunc is notified as tools run during a turn. Event is one of
// "tool_start", "tool_result", "tool_error".
type ToolEventFunc func(event, tool string)

// Agent processes chat messages. With no provider client it runs entirely on
// the keyword router; with one it degrades to the router when the provider
// rejects us (bad key, quota, missing model).
type Agent struct {
	cfg           Config
	client        llm.Client // nil means fallback-only
	registry      *tools.Registry
	conversations *store.ConversationStore
	fallback      *Router
	log           *logging.Logger
}

// New creates a chat agent. client may be nil.
func New(
	cfg Config,
	client llm.Client,
	registry *tools.Registry,
	conversations *store.ConversationStore,
	log *logging.Logger,
) *Agent {
	return &Agent{
		cfg:           cfg,
		client:        client,
		registry:      registry,
		conversations: conversations,
		fallback:      NewRouter(registry, log),
		log:           log.Sub("agent"),
	}
}

// Chat processes one inbound message for the owner. conversationID zero
// starts a new conversation. onEvent may be nil.
//
// Each successful turn persists exactly one user message and one assistant
// message (carrying the turn's tool records) and bumps the conversation's
// updated_at once.
func (a *Agent) Chat(ctx context.Context, ownerID string, conversationID int64, message string, onEvent ToolEventFunc) (*ChatResult, error) {
	start := time.Now()

	if strings.TrimSpace(message) == "" {
		return nil, domain.Validationf("message must not be empty")
	}
	if len(message) > domain.MaxInboundContentLen {
		return nil, domain.Validationf("message must be at most %d characters", domain.MaxInboundContentLen)
	}

	conv, err := a.conversations.GetOrCreate(ownerID, conversationID)
	if err != nil {
		return nil, err
	}

	a.log.Info().
		Str("owner", ownerID).
		Int64("conversation", conv.ID).
		Str("provider", a.providerName()).
		Msg("processing message")

	if _, err := a.conversations.AppendMessage(domain.Message{
		ConversationID: conv.ID,
		OwnerID:        ownerID,
		Role:           domain.RoleUser,
		Content:        message,
	}); err != nil {
		return nil, err
	}

	reply, source, model := a.respond(ctx, ownerID, conv.ID, message, onEvent)

	if _, err := a.conversations.AppendMessage(domain.Message{
		ConversationID: conv.ID,
		OwnerID:        ownerID,
		Role:           domain.RoleAssistant,
		Content:        reply.Text,
		ToolCalls:      reply.ToolCalls,
	}); err != nil {
		return nil, err
	}
	if err := a.conversations.Touch(conv.ID); err != nil {
		return nil, err
	}

	a.log.Info().
		Int64("conversation", conv.ID).
		Str("source", source).
		Int("toolCalls", len(reply.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("response generated")

	return &ChatResult{
		ConversationID: conv.ID,
		Response:       reply.Text,
		ToolCalls:      reply.ToolCalls,
		Source:         source,
		Model:          model,
		Duration:       time.Since(start),
	}, nil
}

func (a *Agent) providerName() string {
	if a.client == nil {
		return "none"
	}
	return a.client.Name()
}

// respond produces the assistant reply for a message. It never fails the
// turn: provider trouble degrades to the keyword router or an apology.
func (a *Agent) respond(ctx context.Context, ownerID string, conversationID int64, message string, onEvent ToolEventFunc) (Reply, string, string) {
	// A bare help request never needs a provider round trip.
	lower := strings.ToLower(message)
	if strings.Contains(lower, "help") && len(strings.Fields(lower)) <= 3 {
		return Reply{Text: helpText}, SourceFallback, ""
	}

	if a.client == nil {
		return a.fallback.Respond(ctx, ownerID, message), SourceFallback, ""
	}

	reply, model, err := a.completeWithTools(ctx, ownerID, conversationID, onEvent)
	if err == nil {
		return reply, SourceProvider, model
	}

	if llm.IsFallbackEligible(err) {
		a.log.Warn().Err(err).Msg("provider unavailable, using keyword router")
		return a.fallback.Respond(ctx, ownerID, message), SourceFallback, ""
	}

	a.log.Error().Err(err).Msg("provider call failed")
	return Reply{Text: apologyText}, SourceProvider, ""
}

// completeWithTools makes at most two provider calls: one that may request
// tools, and one to phrase the final answer after tool results.
func (a *Agent) completeWithTools(ctx context.Context, ownerID string, conversationID int64, onEvent ToolEventFunc) (Reply, string, error) {
	history, err := a.conversations.History(conversationID, a.cfg.HistoryLimit)
	if err != nil {
		return Reply{}, "", err
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	first, err := a.client.Complete(ctx, llm.CompletionRequest{
		Model:    a.cfg.Model,
		System:   systemPrompt,
		Messages: msgs,
		Tools:    a.registry.Definitions(),
	})
	if err != nil {
		return Reply{}, "", err
	}

	if len(first.ToolCalls) == 0 {
		return Reply{Text: first.Content}, first.Model, nil
	}

	records := a.executeToolCalls(ctx, ownerID, first.ToolCalls, onEvent)

	// Feed the tool outcomes back for a natural-language summary.
	msgs = append(msgs, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})
	for i, tc := range first.ToolCalls {
		msgs = append(msgs, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: tc.ID,
			Content:    records[i].ResultJSON(),
		})
	}

	final, err := a.client.Complete(ctx, llm.CompletionRequest{
		Model:    a.cfg.Model,
		System:   systemPrompt,
		Messages: msgs,
	})
	if err != nil {
		return Reply{}, "", err
	}

	return Reply{Text: final.Content, ToolCalls: records}, final.Model, nil
}

// executeToolCalls runs the requested tools concurrently. Results land in
// request order; a failed call is recorded on its record, never fatal.
func (a *Agent) executeToolCalls(ctx context.Context, ownerID string, calls []llm.ToolCall, onEvent ToolEventFunc) []domain.ToolRecord {
	records := make([]domain.ToolRecord, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			records[i] = a.executeOne(ctx, ownerID, call, onEvent)
		}(i, call)
	}
	wg.Wait()

	return records
}

func (a *Agent) executeOne(ctx context.Context, ownerID string, call llm.ToolCall, onEvent ToolEventFunc) domain.ToolRecord {
	notify := func(event string) {
		if onEvent != nil {
			onEvent(event, call.Name)
		}
	}
	notify("tool_start")

	var params map[string]any
	if err := json.Unmarshal([]byte(call.Input), &params); err != nil {
		notify("tool_error")
		return domain.ToolRecord{
			Tool:  call.Name,
			Error: "invalid tool arguments: " + err.Error(),
		}
	}
	if params == nil {
		params = map[string]any{}
	}
	// The caller's identity always wins over whatever the model put here.
	params["owner_id"] = ownerID

	a.log.Debug().Str("tool", call.Name).Msg("executing tool")
	result, err := a.registry.Invoke(ctx, call.Name, params)
	if err != nil {
		notify("tool_error")
		return domain.ToolRecord{Tool: call.Name, Parameters: params, Error: err.Error()}
	}

	notify("tool_result")
	return domain.ToolRecord{Tool: call.Name, Parameters: params, Result: result}
}
