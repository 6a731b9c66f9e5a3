// Package structured runs a single forced tool call against a chat model and
// decodes the tool arguments into a typed value.
package structured

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ErrNoToolCall is returned when the model answered with plain text instead
// of invoking the requested tool. Callers that have a fallback (e.g. a
// default routing target) should treat it as malformed output, not as a
// transport failure.
var ErrNoToolCall = errors.New("structured: model response contains no tool call")

// ErrBadArguments is returned when the tool call arguments do not decode
// into the output type.
var ErrBadArguments = errors.New("structured: tool call arguments do not match schema")

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

// Chain binds a prompt builder, a tool schema derived from TOutput and a
// tool-calling chat model into one Invoke call.
type Chain[TInput, TOutput any] struct {
	prompt    PromptBuilder[TInput]
	chatModel model.ToolCallingChatModel
	toolInfo  *schema.ToolInfo
}

func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	prompt PromptBuilder[TInput],
	toolName string,
	toolDesc string,
) (*Chain[TInput, TOutput], error) {
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &Chain[TInput, TOutput]{
		prompt:    prompt,
		chatModel: chatModel,
		toolInfo:  toolInfo,
	}, nil
}

// Invoke builds the prompt, forces the model to call the bound tool and
// decodes the arguments of the first matching call.
func (c *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := c.prompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}

	response, err := c.chatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{c.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, c.toolInfo.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}

	args := ""
	for _, tc := range response.ToolCalls {
		if tc.Function.Name == c.toolInfo.Name {
			args = tc.Function.Arguments
			break
		}
	}
	if args == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoToolCall, response.Content)
	}

	var result TOutput
	if err := sonic.UnmarshalString(args, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	return &result, nil
}

func (c *Chain[TInput, TOutput]) ToolInfo() *schema.ToolInfo {
	return c.toolInfo
}
