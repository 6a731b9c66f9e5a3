package skillagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/echimine/skillagent/structured"
)

const (
	updateSlotsToolName = "update_slots"
	updateSlotsToolDesc = "Generate RFC6902 JSON Patch operations that fill slot values based on the user message. Only include operations for information explicitly provided by the user."
)

// PatchOperation is a single RFC6902 operation emitted by the model.
type PatchOperation struct {
	Op    string `json:"op" jsonschema:"required,enum=add,enum=replace,description=Patch operation kind"`
	Path  string `json:"path" jsonschema:"required,description=JSON pointer of the slot to set"`
	Value any    `json:"value,omitempty" jsonschema:"description=New slot value"`
}

type updateSlotsArgs struct {
	Operations []PatchOperation `json:"operations" jsonschema:"description=RFC6902 operations updating the slot document"`
}

type patchExtractInput struct {
	skill       *Skill
	known       map[string]string
	userMessage string
}

type slotDocument struct {
	Slots map[string]string `json:"slots"`
}

// PatchSlotExtractor is an alternative SlotExtractor for models with native
// tool calling: slot updates are requested as RFC6902 operations against the
// document {"slots": {...}} and applied with an allowed-path whitelist.
// Operations never remove values, so the merge guarantees of DialogState
// still hold.
type PatchSlotExtractor struct {
	chain *structured.Chain[patchExtractInput, updateSlotsArgs]
}

func NewPatchSlotExtractor(chatModel model.ToolCallingChatModel) (*PatchSlotExtractor, error) {
	chain, err := structured.NewChain[patchExtractInput, updateSlotsArgs](
		chatModel,
		buildPatchExtractPrompt,
		updateSlotsToolName,
		updateSlotsToolDesc,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s chain: %w", updateSlotsToolName, err)
	}
	return &PatchSlotExtractor{chain: chain}, nil
}

func buildPatchExtractPrompt(ctx context.Context, input patchExtractInput) ([]*schema.Message, error) {
	doc := slotDocument{Slots: fullSlotMap(input.skill.Slots, input.known)}
	docJSON, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal slot document: %w", err)
	}

	systemPrompt := fmt.Sprintf(`You are a slot-filling assistant. Analyze the user message and call the %s tool with RFC6902 JSON Patch operations.

Rules:
- Only extract information explicitly provided by the user
- Use "replace" to change an existing value, "add" otherwise
- Only use paths from the allowed paths list
- Never set a path to an empty value
- If there is nothing to extract, call the tool with an empty operations array`, updateSlotsToolName)

	userPrompt := fmt.Sprintf(`Current slot document:
%s

Allowed paths (you may only modify these):
%s
%s
User message: %s

Call the %s tool to generate patch operations.`,
		docJSON,
		formatAllowedPaths(input.skill.Slots),
		formatSlotSpecs(input.skill.Slots, input.known),
		input.userMessage,
		updateSlotsToolName,
	)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}, nil
}

func (e *PatchSlotExtractor) ExtractSlots(ctx context.Context, skill *Skill, known map[string]string, userMessage string) (map[string]any, error) {
	if len(skill.Slots) == 0 {
		return map[string]any{}, nil
	}

	args, err := e.chain.Invoke(ctx, patchExtractInput{skill: skill, known: known, userMessage: userMessage})
	if err != nil {
		return nil, fmt.Errorf("slot patch generation failed: %w", err)
	}
	if len(args.Operations) == 0 {
		return map[string]any{}, nil
	}

	allowed := allowedSlotPaths(skill.Slots)
	if err := validatePatchOperations(args.Operations, allowed); err != nil {
		// Ops outside the whitelist are malformed model output, not a
		// transport failure; discard them and keep the state unchanged.
		slog.Warn("discarding invalid slot patch", "skill", skill.Name, "err", err)
		return map[string]any{}, nil
	}

	updated, err := applySlotPatch(fullSlotMap(skill.Slots, known), args.Operations)
	if err != nil {
		slog.Warn("discarding unappliable slot patch", "skill", skill.Name, "err", err)
		return map[string]any{}, nil
	}

	extracted := make(map[string]any, len(updated))
	for name, v := range updated {
		extracted[name] = v
	}
	return extracted, nil
}

// applySlotPatch applies the operations to a copy of the slot document and
// returns the resulting slot map.
func applySlotPatch(slots map[string]string, ops []PatchOperation) (map[string]string, error) {
	docJSON, err := sonic.Marshal(slotDocument{Slots: slots})
	if err != nil {
		return nil, fmt.Errorf("marshal slot document: %w", err)
	}
	opsJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal patch operations: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(opsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	patched, err := patch.Apply(docJSON)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}

	var result slotDocument
	if err := sonic.Unmarshal(patched, &result); err != nil {
		return nil, fmt.Errorf("patched document has wrong shape: %w", err)
	}
	return result.Slots, nil
}

func validatePatchOperations(ops []PatchOperation, allowed map[string]bool) error {
	for _, op := range ops {
		if op.Op != "add" && op.Op != "replace" {
			return fmt.Errorf("operation %q not allowed", op.Op)
		}
		if !allowed[op.Path] {
			return fmt.Errorf("path %q not in allowed paths", op.Path)
		}
	}
	return nil
}

func allowedSlotPaths(slots []Slot) map[string]bool {
	allowed := make(map[string]bool, len(slots))
	for _, s := range slots {
		allowed["/slots/"+s.Name] = true
	}
	return allowed
}

func formatAllowedPaths(slots []Slot) string {
	var sb strings.Builder
	for _, s := range slots {
		sb.WriteString("  - /slots/")
		sb.WriteString(s.Name)
		sb.WriteString("\n")
	}
	return sb.String()
}

// fullSlotMap returns one entry per slot, empty string for unset values, so
// patch paths always resolve.
func fullSlotMap(slots []Slot, known map[string]string) map[string]string {
	out := make(map[string]string, len(slots))
	for _, s := range slots {
		out[s.Name] = known[s.Name]
	}
	return out
}

var _ SlotExtractor = (*PatchSlotExtractor)(nil)
