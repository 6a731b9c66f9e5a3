package skillagent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Responder phrases user-facing prose: skill finalization and the direct
// answers of slot-less conversational skills.
type Responder struct {
	chatModel   model.BaseChatModel
	temperature float32
	maxTokens   int
}

type ResponderOption func(*Responder)

func WithResponderTemperature(t float32) ResponderOption {
	return func(r *Responder) { r.temperature = t }
}

func WithResponderMaxTokens(n int) ResponderOption {
	return func(r *Responder) { r.maxTokens = n }
}

func NewResponder(chatModel model.BaseChatModel, opts ...ResponderOption) *Responder {
	r := &Responder{chatModel: chatModel, temperature: 0.7, maxTokens: 256}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond issues one generation call: system prompt, optional prior history,
// then the user content. The model's text is returned verbatim.
func (r *Responder) Respond(ctx context.Context, systemPrompt, userContent string, history []*schema.Message) (string, error) {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	if userContent != "" {
		messages = append(messages, schema.UserMessage(userContent))
	}

	resp, err := r.chatModel.Generate(ctx, messages,
		model.WithTemperature(r.temperature), model.WithMaxTokens(r.maxTokens))
	if err != nil {
		return "", fmt.Errorf("response generation failed: %w", err)
	}
	return resp.Content, nil
}
