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

// SlotExtractor asks the model for new slot values in a user message.
// The returned map holds raw decoded JSON values keyed by slot name; merge
// rules are applied by DialogState. An empty map means "nothing extracted"
// and is not an error. A non-nil error means the model call itself failed
// and the turn must be aborted.
type SlotExtractor interface {
	ExtractSlots(ctx context.Context, skill *Skill, known map[string]string, userMessage string) (map[string]any, error)
}

// ModelSlotExtractor extracts slot values with a plain structured-extraction
// prompt and loose JSON parsing. When the first response carries no usable
// "slots" object it retries exactly once with a stricter, example-free
// prompt; when that fails too it reports no extracted slots.
type ModelSlotExtractor struct {
	chatModel model.BaseChatModel
}

func NewModelSlotExtractor(chatModel model.BaseChatModel) *ModelSlotExtractor {
	return &ModelSlotExtractor{chatModel: chatModel}
}

func (e *ModelSlotExtractor) ExtractSlots(ctx context.Context, skill *Skill, known map[string]string, userMessage string) (map[string]any, error) {
	if len(skill.Slots) == 0 {
		return map[string]any{}, nil
	}

	slotList := formatSlotSpecs(skill.Slots, known)

	resp, err := e.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(extractionPrompt(slotList)),
		schema.UserMessage(userMessage),
	}, model.WithTemperature(0), model.WithMaxTokens(256))
	if err != nil {
		return nil, fmt.Errorf("slot extraction call failed: %w", err)
	}
	slog.Debug("slot extraction response", "skill", skill.Name, "attempt", 1, "len", len(resp.Content))

	slots, ok := slotsObject(loosejson.Extract(resp.Content))
	if ok {
		return slots, nil
	}

	// One retry with a stricter prompt: slot list and user message embedded,
	// no example, no user turn.
	resp, err = e.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(strictExtractionPrompt(slotList, userMessage)),
	}, model.WithTemperature(0), model.WithMaxTokens(256))
	if err != nil {
		return nil, fmt.Errorf("slot extraction retry failed: %w", err)
	}
	slog.Debug("slot extraction response", "skill", skill.Name, "attempt", 2, "len", len(resp.Content))

	slots, ok = slotsObject(loosejson.Extract(resp.Content))
	if !ok {
		slog.Warn("slot extraction produced no usable JSON, keeping state unchanged", "skill", skill.Name)
		return map[string]any{}, nil
	}
	return slots, nil
}

func slotsObject(data map[string]any) (map[string]any, bool) {
	slots, ok := data["slots"].(map[string]any)
	if !ok {
		return nil, false
	}
	return slots, true
}

func formatSlotSpecs(slots []Slot, known map[string]string) string {
	var sb strings.Builder
	for _, s := range slots {
		current := "unknown"
		if v := known[s.Name]; v != "" {
			current = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&sb, "- %q: %s. Current value = %s\n", s.Name, s.Description, current)
	}
	return sb.String()
}

func extractionPrompt(slotList string) string {
	return fmt.Sprintf(`You are an assistant that extracts structured information from a user message.

These are the fields (slots) to fill:

%s
From the user message below ONLY, possibly completing what is already known,
extract new values for these slots.

Answer STRICTLY as JSON, with NO surrounding text:

{
  "slots": {
    "slot_name_1": "value or null",
    "slot_name_2": "value or null"
  }
}

- Every slot value must be a string or null.
- If the message gives no value for a slot, set it to null.
- If a value is already known and the message does not contradict it,
  leave it null (the current value is kept).

Example:

Slots:
- "restaurant_name": the restaurant name or cuisine. Current value = unknown
- "date": the booking date. Current value = unknown
- "time": the booking time. Current value = unknown
- "people": the number of people. Current value = unknown

User message:
"book me an italian place tomorrow evening at 8pm for 3"

Expected answer:

{
  "slots": {
    "restaurant_name": "italian",
    "date": "tomorrow evening",
    "time": "8pm",
    "people": "3"
  }
}`, slotList)
}

func strictExtractionPrompt(slotList, userMessage string) string {
	return fmt.Sprintf(`You MUST answer with only this JSON, with no text before or after.

These are the slots:

%s
User message:
%q

Answer exactly in the shape:

{
  "slots": {
    "SLOT_NAME_1": "value or null",
    "SLOT_NAME_2": "value or null"
  }
}

Replace SLOT_NAME_* with the real slot names.
Every value must be a string or null.
If you do not know a value, set it to null.`, slotList, userMessage)
}

var _ SlotExtractor = (*ModelSlotExtractor)(nil)
