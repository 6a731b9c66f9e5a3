package skillagent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/echimine/skillagent/loosejson"
)

// SwitchMode is the outcome of switch arbitration.
type SwitchMode string

const (
	// SwitchContinue: the message answers the pending slot question.
	SwitchContinue SwitchMode = "continue"
	// SwitchNew: the message starts a new topic. Decision.Target names the
	// skill when the arbiter is confident, and is empty otherwise.
	SwitchNew SwitchMode = "switch"
	// SwitchRoute: no arbitration applies (no pending question); the caller
	// must classify from scratch.
	SwitchRoute SwitchMode = "route"
)

// SwitchDecision is the arbiter's verdict for one turn.
type SwitchDecision struct {
	Mode   SwitchMode
	Target string
}

// SwitchRequest carries the mid-slot-filling context the arbiter needs.
type SwitchRequest struct {
	CurrentSkill *Skill
	PendingSlot  *Slot
	Skills       []*Skill
	UserMessage  string
}

// SwitchArbiter decides whether an in-progress answer continues the current
// skill or starts a new one. Unusable model output defaults to continuing,
// which never loses in-progress state. A non-nil error means the model call
// itself failed.
type SwitchArbiter interface {
	Decide(ctx context.Context, req SwitchRequest) (SwitchDecision, error)
}

// ModelSwitchArbiter arbitrates with a context-classification prompt and
// loose JSON parsing of a {"mode": ..., "intent": ...} answer.
type ModelSwitchArbiter struct {
	chatModel model.BaseChatModel
}

func NewModelSwitchArbiter(chatModel model.BaseChatModel) *ModelSwitchArbiter {
	return &ModelSwitchArbiter{chatModel: chatModel}
}

func (a *ModelSwitchArbiter) Decide(ctx context.Context, req SwitchRequest) (SwitchDecision, error) {
	if req.CurrentSkill == nil || req.PendingSlot == nil {
		return SwitchDecision{Mode: SwitchRoute}, nil
	}

	slotDesc := fmt.Sprintf("name=%q, description=%q, question=%q",
		req.PendingSlot.Name, req.PendingSlot.Description, req.PendingSlot.Question)

	systemPrompt := fmt.Sprintf(`You are a conversation context classifier.

Context:
- The system is currently handling the skill %q.
- It is waiting for the user's answer about a specific field (slot):
  %s

The available skills are:
%s
Current user message:
%q

Your task:
1. Decide whether the user is answering the pending question for this skill,
   or starting a new request that matches another skill.
2. If it is a new request, name the most relevant skill.

Answer STRICTLY as JSON, with NO surrounding text:

{
  "mode": "continue" | "switch",
  "intent": "skill_name_or_null"
}

- "mode" = "continue" when the user answers the pending slot question.
- "mode" = "switch" when the user starts a new request.
- When "mode" = "switch", "intent" must be one of the skill names above,
  or null when you are not sure.`,
		req.CurrentSkill.Name, slotDesc, formatSkillList(req.Skills), req.UserMessage)

	resp, err := a.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(req.UserMessage),
	}, model.WithTemperature(0), model.WithMaxTokens(128))
	if err != nil {
		return SwitchDecision{}, fmt.Errorf("switch arbitration call failed: %w", err)
	}
	slog.Debug("switch arbitration response", "skill", req.CurrentSkill.Name, "len", len(resp.Content))

	data := loosejson.Extract(resp.Content)
	mode, _ := data["mode"].(string)
	intent, _ := data["intent"].(string)

	switch SwitchMode(mode) {
	case SwitchContinue:
		return SwitchDecision{Mode: SwitchContinue}, nil
	case SwitchNew:
		if skillRegistered(req.Skills, intent) {
			return SwitchDecision{Mode: SwitchNew, Target: intent}, nil
		}
		return SwitchDecision{Mode: SwitchNew}, nil
	default:
		// Anything else fails safe toward not losing in-progress state.
		return SwitchDecision{Mode: SwitchContinue}, nil
	}
}

var _ SwitchArbiter = (*ModelSwitchArbiter)(nil)
