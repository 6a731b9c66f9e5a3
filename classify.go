package skillagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/echimine/skillagent/loosejson"
)

// IntentClassifier picks the best-matching skill for a user message. The
// returned name is always one of the given skills; unusable model output
// degrades to a fallback skill instead of an error. A non-nil error means
// the model call itself failed.
type IntentClassifier interface {
	Classify(ctx context.Context, skills []*Skill, userMessage string) (string, error)
}

// ModelIntentClassifier classifies with a routing prompt and loose JSON
// parsing of a {"intent": "..."} answer.
type ModelIntentClassifier struct {
	chatModel    model.BaseChatModel
	defaultSkill string
}

type ClassifierOption func(*ModelIntentClassifier)

// WithClassifierDefaultSkill names the skill used when the model does not
// return a registered name. Without it the first registered skill is used.
func WithClassifierDefaultSkill(name string) ClassifierOption {
	return func(c *ModelIntentClassifier) {
		c.defaultSkill = name
	}
}

func NewModelIntentClassifier(chatModel model.BaseChatModel, opts ...ClassifierOption) *ModelIntentClassifier {
	c := &ModelIntentClassifier{chatModel: chatModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ModelIntentClassifier) Classify(ctx context.Context, skills []*Skill, userMessage string) (string, error) {
	systemPrompt := fmt.Sprintf(`You are a request router.
These are the available conversation types (skills):

%s
From the user message below, choose the single best skill from the list.

Answer STRICTLY as JSON:

{
  "intent": "skill_name"
}

- "intent" must be exactly one of the names listed above.`, formatSkillList(skills))

	resp, err := c.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userMessage),
	}, model.WithTemperature(0), model.WithMaxTokens(128))
	if err != nil {
		return "", fmt.Errorf("intent classification call failed: %w", err)
	}
	slog.Debug("intent classification response", "len", len(resp.Content))

	intent, _ := loosejson.Extract(resp.Content)["intent"].(string)
	return resolveIntent(skills, intent, c.defaultSkill), nil
}

// resolveIntent maps a (possibly bogus) model answer to a registered skill
// name: the answer itself when registered, else the preferred default, else
// the first registered skill.
func resolveIntent(skills []*Skill, intent, preferred string) string {
	if skillRegistered(skills, intent) {
		return intent
	}
	if skillRegistered(skills, preferred) {
		return preferred
	}
	return skills[0].Name
}

func skillRegistered(skills []*Skill, name string) bool {
	if name == "" {
		return false
	}
	for _, s := range skills {
		if s.Name == name {
			return true
		}
	}
	return false
}

func formatSkillList(skills []*Skill) string {
	var sb strings.Builder
	for _, s := range skills {
		fmt.Fprintf(&sb, "- %q: %s\n", s.Name, s.Description)
	}
	return sb.String()
}

var _ IntentClassifier = (*ModelIntentClassifier)(nil)
