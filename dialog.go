package skillagent

import (
	"strconv"
	"strings"
)

// DialogState tracks the slot values currently known for one skill. The
// value map always holds one entry per registered slot; an empty string
// means the slot is unset. A value, once set, is only cleared by replacing
// the whole state with a fresh one.
type DialogState struct {
	slots  []Slot
	values map[string]string
	status Status
}

// NewDialogState returns an empty state for the given slots. A slot-less
// state is ready immediately.
func NewDialogState(slots []Slot) *DialogState {
	values := make(map[string]string, len(slots))
	for _, s := range slots {
		values[s.Name] = ""
	}
	status := StatusCollecting
	if len(slots) == 0 {
		status = StatusReady
	}
	return &DialogState{slots: slots, values: values, status: status}
}

// Merge folds extracted values into the state. Rules:
//   - non-empty strings (after trimming) are adopted
//   - numbers and booleans are adopted as their text representation
//   - explicit nulls, blank strings, and list/object values leave the
//     existing value unchanged (a known value is never overwritten with
//     emptiness)
//
// Unknown keys in extracted are ignored. The status is recomputed after the
// merge.
func (d *DialogState) Merge(extracted map[string]any) {
	for _, s := range d.slots {
		raw, ok := extracted[s.Name]
		if !ok || raw == nil {
			continue
		}
		if v, ok := coerceSlotValue(raw); ok {
			d.values[s.Name] = v
		}
	}
	if len(d.MissingSlots()) == 0 {
		d.status = StatusReady
	} else {
		d.status = StatusCollecting
	}
}

// coerceSlotValue converts a decoded JSON value into slot text. The second
// return is false when the value must not replace the current one.
func coerceSlotValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	// JSON decoding only yields float64; the int cases are for SlotExtractor
	// implementations that build the map in Go instead of decoding a model
	// response.
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		// Lists and objects are out of shape for a slot; keep the previous
		// value.
		return "", false
	}
}

// MissingSlots returns the unset slots in registration order, which makes
// "which slot to ask next" deterministic.
func (d *DialogState) MissingSlots() []Slot {
	var missing []Slot
	for _, s := range d.slots {
		if d.values[s.Name] == "" {
			missing = append(missing, s)
		}
	}
	return missing
}

// NextAction returns ActionReady when every slot has a value, otherwise an
// ActionAskSlot for the first missing slot. It is idempotent.
func (d *DialogState) NextAction() Action {
	missing := d.MissingSlots()
	if len(missing) == 0 {
		return Action{Type: ActionReady}
	}
	return Action{Type: ActionAskSlot, Slot: &missing[0]}
}

// Status reports whether the state is still collecting or ready.
func (d *DialogState) Status() Status {
	return d.status
}

// Values returns a copy of the non-empty slot values.
func (d *DialogState) Values() map[string]string {
	out := make(map[string]string, len(d.values))
	for name, v := range d.values {
		if v != "" {
			out[name] = v
		}
	}
	return out
}

// Value returns the current value of a slot and whether it is set.
func (d *DialogState) Value(name string) (string, bool) {
	v, ok := d.values[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
