package skillagent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel replays scripted replies in order and records every call,
// so the turn algorithm can be exercised without a live model.
type fakeChatModel struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   [][]*schema.Message
}

type fakeReply struct {
	content   string
	toolCalls []schema.ToolCall
	err       error
}

func textReply(content string) fakeReply {
	return fakeReply{content: content}
}

func errReply(err error) fakeReply {
	return fakeReply{err: err}
}

func toolReply(name, args string) fakeReply {
	return fakeReply{toolCalls: []schema.ToolCall{
		{Function: schema.FunctionCall{Name: name, Arguments: args}},
	}}
}

func (f *fakeChatModel) queue(replies ...fakeReply) {
	f.mu.Lock()
	f.replies = append(f.replies, replies...)
	f.mu.Unlock()
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if len(f.replies) == 0 {
		return nil, fmt.Errorf("fake model: no scripted reply for call %d", len(f.calls))
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return &schema.Message{
		Role:      schema.Assistant,
		Content:   reply.content,
		ToolCalls: reply.toolCalls,
	}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("fake model: streaming not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

var _ model.ToolCallingChatModel = (*fakeChatModel)(nil)

// testSkills is the registry used across orchestrator tests: a weather
// skill with two slots and a slot-less smalltalk skill.
func testSkills(weatherHandler Handler) []*Skill {
	return []*Skill{
		{
			Name:        "weather",
			Description: "weather questions for a city and a date",
			Slots: []Slot{
				{Name: "city", Description: "the city for the forecast", Question: "Which city do you want the weather for?"},
				{Name: "date", Description: "the date for the forecast", Question: "Which date do you want the weather for?"},
			},
			FinalPrompt: "You are a weather assistant.",
			OnReady:     weatherHandler,
		},
		{
			Name:        "smalltalk",
			Description: "general conversation",
			FinalPrompt: "You are a conversational assistant.",
		},
	}
}

func newTestOrchestrator(t *testing.T, chatModel model.BaseChatModel, weatherHandler Handler, opts ...Option) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(testSkills(weatherHandler), chatModel, opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return orch
}
