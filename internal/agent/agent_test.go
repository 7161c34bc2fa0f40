package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/llm"
	"github.com/soyeahso/taskdeck/internal/logging"
	"github.com/soyeahso/taskdeck/internal/store"
	"github.com/soyeahso/taskdeck/internal/tools"
)

type agentFixture struct {
	agent *Agent
	mock  *llm.MockClient
	tasks *store.TaskStore
	convs *store.ConversationStore
}

func testAgent(t *testing.T, client *llm.MockClient) agentFixture {
	t.Helper()
	db, err := store.Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := store.NewTaskStore(db)
	cs := store.NewConversationStore(db)
	reg := tools.NewRegistry()
	require.NoError(t, tools.RegisterTaskTools(reg, ts))

	var c llm.Client
	if client != nil {
		c = client
	}
	a := New(Config{Model: "gpt-4o-mini", HistoryLimit: 50}, c, reg, cs, logging.New(nil, "silent"))
	return agentFixture{agent: a, mock: client, tasks: ts, convs: cs}
}

func TestChatValidation(t *testing.T) {
	f := testAgent(t, nil)
	ctx := context.Background()

	_, err := f.agent.Chat(ctx, "alice", 0, "   ", nil)
	assert.True(t, domain.IsValidation(err))

	_, err = f.agent.Chat(ctx, "alice", 0, strings.Repeat("x", domain.MaxInboundContentLen+1), nil)
	assert.True(t, domain.IsValidation(err))
}

func TestChatUnknownConversation(t *testing.T) {
	f := testAgent(t, nil)

	_, err := f.agent.Chat(context.Background(), "alice", 42, "hello", nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestChatCrossOwnerConversation(t *testing.T) {
	f := testAgent(t, nil)
	ctx := context.Background()

	res, err := f.agent.Chat(ctx, "alice", 0, "hello there", nil)
	require.NoError(t, err)

	_, err = f.agent.Chat(ctx, "bob", res.ConversationID, "hello", nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestChatFallbackOnlyPersistsTurn(t *testing.T) {
	f := testAgent(t, nil)
	ctx := context.Background()

	res, err := f.agent.Chat(ctx, "alice", 0, "create a task to buy milk", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Contains(t, res.Response, "✓ I've created a new task")
	require.Len(t, res.ToolCalls, 1)

	msgs, err := f.convs.Messages("alice", res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "create a task to buy milk", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "add_task", msgs[1].ToolCalls[0].Tool)

	// The second turn continues the same conversation.
	res2, err := f.agent.Chat(ctx, "alice", res.ConversationID, "show my tasks", nil)
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, res2.ConversationID)
	assert.Contains(t, res2.Response, "buy milk")
}

func TestChatHelpShortCircuit(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			t.Fatal("provider must not be called for a help request")
			return nil, nil
		},
	}
	f := testAgent(t, mock)

	res, err := f.agent.Chat(context.Background(), "alice", 0, "help", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "I can help you manage your tasks")
	assert.Empty(t, mock.Calls)
}

func TestChatProviderDirectAnswer(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "You have nothing urgent today.", Model: "gpt-4o-mini"}, nil
		},
	}
	f := testAgent(t, mock)

	res, err := f.agent.Chat(context.Background(), "alice", 0, "anything urgent today?", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, "You have nothing urgent today.", res.Response)
	assert.Empty(t, res.ToolCalls)
	require.Len(t, mock.Calls, 1)

	// System prompt and tool definitions ride on the first call.
	assert.Contains(t, mock.Calls[0].System, "task management assistant")
	assert.Len(t, mock.Calls[0].Tools, 5)
}

func TestChatProviderToolRoundTrip(t *testing.T) {
	mock := &llm.MockClient{}
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if len(mock.Calls) == 1 {
			return &llm.CompletionResponse{
				ToolCalls: []llm.ToolCall{{
					ID:    "call_1",
					Name:  "add_task",
					Input: `{"title":"Buy milk","owner_id":"evil-spoof"}`,
				}},
				StopReason: "tool_calls",
			}, nil
		}
		return &llm.CompletionResponse{Content: "Done! I added 'Buy milk' to your list.", Model: "gpt-4o-mini"}, nil
	}
	f := testAgent(t, mock)

	var events []string
	res, err := f.agent.Chat(context.Background(), "alice", 0, "add buy milk", func(event, tool string) {
		events = append(events, event+":"+tool)
	})
	require.NoError(t, err)

	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, "Done! I added 'Buy milk' to your list.", res.Response)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "add_task", res.ToolCalls[0].Tool)
	// The model's owner_id is overwritten with the caller's identity.
	assert.Equal(t, "alice", res.ToolCalls[0].Parameters["owner_id"])
	assert.Equal(t, "created", res.ToolCalls[0].Result["status"])
	assert.Equal(t, []string{"tool_start:add_task", "tool_result:add_task"}, events)

	// The task really exists and belongs to alice.
	tasks, err := f.tasks.List("alice", domain.StatusAll)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)

	// Exactly two provider calls: the follow-up carries the tool exchange
	// and requests no further tools.
	require.Len(t, mock.Calls, 2)
	followUp := mock.Calls[1]
	assert.Empty(t, followUp.Tools)
	last := followUp.Messages[len(followUp.Messages)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, `"status":"created"`)
}

func TestChatProviderToolErrorRecorded(t *testing.T) {
	mock := &llm.MockClient{}
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if len(mock.Calls) == 1 {
			return &llm.CompletionResponse{
				ToolCalls: []llm.ToolCall{
					{ID: "c1", Name: "delete_task", Input: `{"task_id":99}`},
					{ID: "c2", Name: "add_task", Input: `not json`},
				},
			}, nil
		}
		return &llm.CompletionResponse{Content: "That task doesn't exist."}, nil
	}
	f := testAgent(t, mock)

	res, err := f.agent.Chat(context.Background(), "alice", 0, "delete task 99", nil)
	require.NoError(t, err)

	require.Len(t, res.ToolCalls, 2)
	assert.Contains(t, res.ToolCalls[0].Error, "not found")
	assert.Contains(t, res.ToolCalls[1].Error, "invalid tool arguments")
	assert.Equal(t, "That task doesn't exist.", res.Response)
}

func TestChatProviderQuotaFallsBack(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "openai", StatusCode: 429, Code: "insufficient_quota", Message: "quota exceeded"}
		},
	}
	f := testAgent(t, mock)

	_, err := f.tasks.Create("alice", "walk dog", "")
	require.NoError(t, err)

	res, err := f.agent.Chat(context.Background(), "alice", 0, "show my tasks", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Contains(t, res.Response, "walk dog")
}

func TestChatProviderHardErrorApologizes(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("connection reset by peer")
		},
	}
	f := testAgent(t, mock)

	res, err := f.agent.Chat(context.Background(), "alice", 0, "show my tasks", nil)
	require.NoError(t, err)
	assert.Equal(t, apologyText, res.Response)
	assert.Empty(t, res.ToolCalls)

	// The failed turn is still persisted.
	msgs, err := f.convs.Messages("alice", res.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestChatHistoryWindow(t *testing.T) {
	var sawMessages []llm.Message
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			sawMessages = req.Messages
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	f := testAgent(t, mock)

	db := f.convs
	conv, err := db.Create("alice")
	require.NoError(t, err)
	for i := 0; i < 60; i++ {
		_, err := db.AppendMessage(domain.Message{
			ConversationID: conv.ID, OwnerID: "alice", Role: domain.RoleUser, Content: "filler",
		})
		require.NoError(t, err)
	}

	_, err = f.agent.Chat(context.Background(), "alice", conv.ID, "latest question", nil)
	require.NoError(t, err)

	// The window holds the most recent 50 messages, ending with the new one.
	require.Len(t, sawMessages, 50)
	assert.Equal(t, "latest question", sawMessages[len(sawMessages)-1].Content)
}
