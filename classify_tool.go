package skillagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/echimine/skillagent/structured"
)

const (
	classifyIntentToolName = "classify_intent"
	classifyIntentToolDesc = "Pick the single best matching skill for the user message."
)

type classifyIntentInput struct {
	skills      []*Skill
	userMessage string
}

type classifyIntentOutput struct {
	Intent string `json:"intent" jsonschema:"required,description=Name of the best matching skill from the list"`
}

// ToolBasedIntentClassifier classifies through a forced tool call, for
// models with native tool calling. The fallback behavior is the same as
// ModelIntentClassifier: a missing or unknown answer degrades to the
// default skill, then the first registered one.
type ToolBasedIntentClassifier struct {
	chain        *structured.Chain[classifyIntentInput, classifyIntentOutput]
	defaultSkill string
}

func NewToolBasedIntentClassifier(chatModel model.ToolCallingChatModel, defaultSkill string) (*ToolBasedIntentClassifier, error) {
	chain, err := structured.NewChain[classifyIntentInput, classifyIntentOutput](
		chatModel,
		buildClassifyIntentPrompt,
		classifyIntentToolName,
		classifyIntentToolDesc,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s chain: %w", classifyIntentToolName, err)
	}
	return &ToolBasedIntentClassifier{chain: chain, defaultSkill: defaultSkill}, nil
}

func buildClassifyIntentPrompt(ctx context.Context, input classifyIntentInput) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf(`You are a request router. These are the available skills:

%s
Call the %s tool with the name of the single best skill for the user message. Use exactly one of the names listed above.`,
		formatSkillList(input.skills), classifyIntentToolName)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(input.userMessage),
	}, nil
}

func (c *ToolBasedIntentClassifier) Classify(ctx context.Context, skills []*Skill, userMessage string) (string, error) {
	out, err := c.chain.Invoke(ctx, classifyIntentInput{skills: skills, userMessage: userMessage})
	if err != nil {
		if errors.Is(err, structured.ErrNoToolCall) || errors.Is(err, structured.ErrBadArguments) {
			slog.Warn("intent tool call malformed, using fallback skill", "err", err)
			return resolveIntent(skills, "", c.defaultSkill), nil
		}
		return "", fmt.Errorf("intent classification call failed: %w", err)
	}
	return resolveIntent(skills, out.Intent, c.defaultSkill), nil
}

var _ IntentClassifier = (*ToolBasedIntentClassifier)(nil)
