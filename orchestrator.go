package skillagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Fixed user-facing replies. Every failure class maps to one of these; no
// error ever escapes a turn.
const (
	resetAcknowledgement = "Okay, let's start over. What would you like to talk about?"
	serviceApology       = "Sorry, I'm having trouble answering right now. Please try again."
	handlerApology       = "I ran into a problem while handling your request."
	lostReply            = "I'm a little lost, could you rephrase that?"
)

// Orchestrator owns one DialogState per skill plus the session focus, and
// drives the per-turn control loop. One instance serves one session and is
// not safe for concurrent use; run one instance per session instead.
type Orchestrator struct {
	skills  map[string]*Skill
	ordered []*Skill
	dialogs map[string]*DialogState

	extractor  SlotExtractor
	classifier IntentClassifier
	arbiter    SwitchArbiter
	commands   CommandParser
	responder  *Responder
	history    *HistoryStore

	// Session focus. lastAskedSlot is set only while awaitingSlot is true
	// and currentSkill is set; the three are cleared together.
	currentSkill  string
	awaitingSlot  bool
	lastAskedSlot string
}

type options struct {
	extractor     SlotExtractor
	classifier    IntentClassifier
	arbiter       SwitchArbiter
	commands      CommandParser
	responder     *Responder
	defaultSkill  string
	historyLimit  int
	resetKeywords []string
}

type Option func(*options)

// WithSlotExtractor replaces the default prompt-and-parse extractor, e.g.
// with a PatchSlotExtractor for tool-calling models.
func WithSlotExtractor(e SlotExtractor) Option {
	return func(o *options) { o.extractor = e }
}

func WithIntentClassifier(c IntentClassifier) Option {
	return func(o *options) { o.classifier = c }
}

func WithSwitchArbiter(a SwitchArbiter) Option {
	return func(o *options) { o.arbiter = a }
}

func WithCommandParser(p CommandParser) Option {
	return func(o *options) { o.commands = p }
}

func WithResponder(r *Responder) Option {
	return func(o *options) { o.responder = r }
}

// WithDefaultSkill names the skill used when intent classification cannot
// produce a registered name. Without it the first registered skill is used.
func WithDefaultSkill(name string) Option {
	return func(o *options) { o.defaultSkill = name }
}

// WithHistoryLimit bounds the conversation history kept for slot-less
// conversational skills. Default 20 messages.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithResetKeywords replaces the default reset keyword set of the built-in
// command parser. Ignored when WithCommandParser is also given.
func WithResetKeywords(keywords ...string) Option {
	return func(o *options) { o.resetKeywords = keywords }
}

// NewOrchestrator builds an orchestrator over the given skill registry.
// Registration order is preserved: it decides both classification fallback
// (when no default skill is named) and slot-question order. chatModel may be
// nil only when every model-backed collaborator is supplied via options.
func NewOrchestrator(skills []*Skill, chatModel model.BaseChatModel, opts ...Option) (*Orchestrator, error) {
	if len(skills) == 0 {
		return nil, fmt.Errorf("at least one skill is required")
	}

	byName := make(map[string]*Skill, len(skills))
	dialogs := make(map[string]*DialogState, len(skills))
	for _, s := range skills {
		if s == nil || s.Name == "" {
			return nil, fmt.Errorf("skill with empty name")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate skill name %q", s.Name)
		}
		seen := make(map[string]bool, len(s.Slots))
		for _, slot := range s.Slots {
			if slot.Name == "" {
				return nil, fmt.Errorf("skill %q has a slot with empty name", s.Name)
			}
			if seen[slot.Name] {
				return nil, fmt.Errorf("skill %q has duplicate slot %q", s.Name, slot.Name)
			}
			seen[slot.Name] = true
		}
		byName[s.Name] = s
		dialogs[s.Name] = NewDialogState(s.Slots)
	}

	o := &options{historyLimit: 20}
	for _, opt := range opts {
		opt(o)
	}
	if o.defaultSkill != "" {
		if _, ok := byName[o.defaultSkill]; !ok {
			return nil, fmt.Errorf("default skill %q is not registered", o.defaultSkill)
		}
	}
	if chatModel == nil && (o.extractor == nil || o.classifier == nil || o.arbiter == nil || o.responder == nil) {
		return nil, fmt.Errorf("chat model is required unless all model-backed components are provided")
	}

	if o.extractor == nil {
		o.extractor = NewModelSlotExtractor(chatModel)
	}
	if o.classifier == nil {
		o.classifier = NewModelIntentClassifier(chatModel, WithClassifierDefaultSkill(o.defaultSkill))
	}
	if o.arbiter == nil {
		o.arbiter = NewModelSwitchArbiter(chatModel)
	}
	if o.commands == nil {
		parser := NewStaticCommandParser()
		if len(o.resetKeywords) > 0 {
			parser.ResetKeywords = o.resetKeywords
		}
		o.commands = parser
	}
	if o.responder == nil {
		o.responder = NewResponder(chatModel)
	}

	return &Orchestrator{
		skills:     byName,
		ordered:    append([]*Skill(nil), skills...),
		dialogs:    dialogs,
		extractor:  o.extractor,
		classifier: o.classifier,
		arbiter:    o.arbiter,
		commands:   o.commands,
		responder:  o.responder,
		history:    NewHistoryStore(KeepLastNTrimmer{N: o.historyLimit}),
	}, nil
}

// HandleMessage processes one user turn and always returns a user-facing
// reply. Service failures leave the session focus and dialog states exactly
// as they were, so the pending question is effectively re-asked.
func (o *Orchestrator) HandleMessage(ctx context.Context, userMessage string) string {
	ctx = callbacks.EnsureRunInfo(ctx, "SkillOrchestrator", "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"input":         userMessage,
		"current_skill": o.currentSkill,
		"pending_slot":  o.lastAskedSlot,
	})

	reply, err := o.handleTurn(ctx, userMessage)
	if err != nil {
		callbacks.OnError(ctx, err)
		return reply
	}
	callbacks.OnEnd(ctx, map[string]any{
		"reply":         reply,
		"current_skill": o.currentSkill,
		"pending_slot":  o.lastAskedSlot,
	})
	return reply
}

// handleTurn implements the turn algorithm. The returned error is non-nil
// only for generation-service failures; the reply is then the fixed apology
// and the session focus is exactly what it was before the turn.
func (o *Orchestrator) handleTurn(ctx context.Context, userMessage string) (reply string, err error) {
	cmd, err := o.commands.ParseCommand(ctx, userMessage)
	if err != nil {
		slog.Warn("command parsing failed, treating as plain input", "err", err)
		cmd = CommandNone
	}
	if cmd == CommandReset {
		o.Reset()
		return resetAcknowledgement, nil
	}

	// Routing may move the focus before a later model call fails; a failed
	// turn must still leave the pending question intact.
	prevSkill, prevAwaiting, prevAsked := o.currentSkill, o.awaitingSlot, o.lastAskedSlot
	defer func() {
		if err != nil {
			o.currentSkill, o.awaitingSlot, o.lastAskedSlot = prevSkill, prevAwaiting, prevAsked
		}
	}()

	skillName, continuing, err := o.routeSkill(ctx, userMessage)
	if err != nil {
		return o.serviceFailure(err)
	}
	if !continuing {
		// Entering a skill afresh clears the pending question. The previous
		// skill's dialog state is kept for a later return to that topic.
		o.currentSkill = skillName
		o.awaitingSlot = false
		o.lastAskedSlot = ""
	}

	skill := o.skills[skillName]
	dialog := o.dialogs[skillName]

	// Slot-less skills answer directly, with recent history for context.
	if len(skill.Slots) == 0 {
		answer, err := o.responder.Respond(ctx, skill.FinalPrompt, userMessage, o.history.Load())
		if err != nil {
			return o.serviceFailure(err)
		}
		o.history.Append(schema.UserMessage(userMessage), schema.AssistantMessage(answer, nil))
		o.clearFocus()
		return answer, nil
	}

	extracted, err := o.extractor.ExtractSlots(ctx, skill, dialog.Values(), userMessage)
	if err != nil {
		return o.serviceFailure(err)
	}
	dialog.Merge(extracted)

	switch action := dialog.NextAction(); action.Type {
	case ActionAskSlot:
		o.awaitingSlot = true
		o.lastAskedSlot = action.Slot.Name
		return action.Slot.Question, nil
	case ActionReady:
		return o.finalize(ctx, skill, dialog)
	}

	// Unreachable under NextAction's contract.
	o.clearFocus()
	return lostReply, nil
}

// routeSkill resolves which skill handles the turn. continuing is true only
// when the arbiter decided the message answers the pending slot question.
// No session state is mutated here.
func (o *Orchestrator) routeSkill(ctx context.Context, userMessage string) (name string, continuing bool, err error) {
	if o.currentSkill != "" && o.awaitingSlot {
		skill := o.skills[o.currentSkill]
		decision, err := o.arbiter.Decide(ctx, SwitchRequest{
			CurrentSkill: skill,
			PendingSlot:  skill.Slot(o.lastAskedSlot),
			Skills:       o.ordered,
			UserMessage:  userMessage,
		})
		if err != nil {
			return "", false, err
		}
		switch decision.Mode {
		case SwitchContinue:
			slog.Debug("switch arbitration: continue", "skill", o.currentSkill)
			return o.currentSkill, true, nil
		case SwitchNew:
			if decision.Target != "" {
				slog.Debug("switch arbitration: switch", "from", o.currentSkill, "to", decision.Target)
				return decision.Target, false, nil
			}
			slog.Debug("switch arbitration: switch without target, re-classifying")
		}
	}

	name, err = o.classifier.Classify(ctx, o.ordered, userMessage)
	if err != nil {
		return "", false, err
	}
	slog.Debug("intent classified", "skill", name)
	return name, false, nil
}

// finalize runs once every slot of the skill has a value: snapshot the
// values, invoke the handler if any, phrase the final answer, then recreate
// the skill's dialog state and return the session to idle.
func (o *Orchestrator) finalize(ctx context.Context, skill *Skill, dialog *DialogState) (string, error) {
	values := dialog.Values()

	var answer string
	if skill.OnReady != nil {
		result, err := o.invokeHandler(ctx, skill, values)
		if err != nil {
			// The skill is abandoned, not retried: its state is reset even
			// though the handler failed.
			slog.Warn("skill handler failed", "skill", skill.Name, "err", err)
			o.resetSkill(skill.Name)
			return handlerApology, nil
		}
		if result != nil && result.Message != "" {
			answer = result.Message
		} else {
			var data any
			if result != nil {
				data = result.Data
			}
			payload, perr := sonic.MarshalIndent(data, "", "  ")
			if perr != nil {
				payload = []byte("null")
			}
			content := fmt.Sprintf("Structured data produced by the business logic of the %q skill:\n%s\n\nWrite a clear, natural reply for the user.", skill.Name, payload)
			answer, err = o.responder.Respond(ctx, skill.FinalPrompt, content, nil)
			if err != nil {
				return o.serviceFailure(err)
			}
		}
	} else {
		content := fmt.Sprintf("The values collected for the %q skill are: %s.\nWrite an appropriate reply for the user.", skill.Name, formatValues(skill, values))
		var err error
		answer, err = o.responder.Respond(ctx, skill.FinalPrompt, content, nil)
		if err != nil {
			return o.serviceFailure(err)
		}
	}

	o.resetSkill(skill.Name)
	return answer, nil
}

// invokeHandler isolates handler failures: an error or panic is reported
// but never corrupts dialog state or session focus.
func (o *Orchestrator) invokeHandler(ctx context.Context, skill *Skill, values map[string]string) (result *HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("skill %q handler panicked: %v", skill.Name, r)
		}
	}()
	result, err = skill.OnReady(ctx, values)
	if err != nil {
		err = fmt.Errorf("skill %q handler failed: %w", skill.Name, err)
	}
	return result, err
}

func (o *Orchestrator) serviceFailure(err error) (string, error) {
	slog.Error("turn aborted: generation service failure", "err", err)
	return serviceApology, err
}

// Reset clears the session focus and conversation history. Dialog states
// keep their collected values, as with the reset keyword.
func (o *Orchestrator) Reset() {
	o.clearFocus()
	o.history.Clear()
}

func (o *Orchestrator) clearFocus() {
	o.currentSkill = ""
	o.awaitingSlot = false
	o.lastAskedSlot = ""
}

// resetSkill replaces the skill's dialog state with a fresh one and clears
// the session focus.
func (o *Orchestrator) resetSkill(name string) {
	if skill, ok := o.skills[name]; ok {
		o.dialogs[name] = NewDialogState(skill.Slots)
	}
	o.clearFocus()
}

// CurrentSkill returns the active skill name, or "" when idle.
func (o *Orchestrator) CurrentSkill() string {
	return o.currentSkill
}

// PendingSlot returns the slot whose question is outstanding, if any.
func (o *Orchestrator) PendingSlot() (string, bool) {
	if !o.awaitingSlot {
		return "", false
	}
	return o.lastAskedSlot, true
}

// SkillValues returns a copy of the known values for a skill, or nil for an
// unknown name.
func (o *Orchestrator) SkillValues(name string) map[string]string {
	dialog, ok := o.dialogs[name]
	if !ok {
		return nil
	}
	return dialog.Values()
}

func formatValues(skill *Skill, values map[string]string) string {
	parts := make([]string, 0, len(values))
	for _, slot := range skill.Slots {
		if v, ok := values[slot.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%q", slot.Name, v))
		}
	}
	return strings.Join(parts, ", ")
}
