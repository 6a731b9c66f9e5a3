package skillagent

import "testing"

func bookingSlots() []Slot {
	return []Slot{
		{Name: "restaurant_name", Description: "restaurant or cuisine", Question: "Which restaurant?"},
		{Name: "date", Description: "booking date", Question: "Which day?"},
		{Name: "time", Description: "booking time", Question: "At what time?"},
	}
}

func TestMergeDoesNotClobberKnownValues(t *testing.T) {
	d := NewDialogState(bookingSlots())
	d.Merge(map[string]any{"restaurant_name": "italian", "date": "friday", "time": nil})

	// A later response with nulls and blanks must leave known values alone.
	d.Merge(map[string]any{"restaurant_name": nil, "date": "   ", "time": "8pm"})

	if v, _ := d.Value("restaurant_name"); v != "italian" {
		t.Errorf("restaurant_name clobbered: %q", v)
	}
	if v, _ := d.Value("date"); v != "friday" {
		t.Errorf("date clobbered: %q", v)
	}
	if v, _ := d.Value("time"); v != "8pm" {
		t.Errorf("time not adopted: %q", v)
	}
}

func TestMergeCoercesNumbersAndBooleans(t *testing.T) {
	slots := []Slot{
		{Name: "people", Question: "How many?"},
		{Name: "confirmed", Question: "Confirmed?"},
		{Name: "price", Question: "Price?"},
	}
	d := NewDialogState(slots)
	// sonic decodes JSON numbers as float64.
	d.Merge(map[string]any{"people": float64(3), "confirmed": true, "price": 12.5})

	if v, _ := d.Value("people"); v != "3" {
		t.Errorf("people = %q, want 3", v)
	}
	if v, _ := d.Value("confirmed"); v != "true" {
		t.Errorf("confirmed = %q, want true", v)
	}
	if v, _ := d.Value("price"); v != "12.5" {
		t.Errorf("price = %q, want 12.5", v)
	}
}

func TestMergeCoercesProgrammaticIntegers(t *testing.T) {
	// Extractors that build the map in Go pass plain ints, not float64.
	slots := []Slot{
		{Name: "people", Question: "How many?"},
		{Name: "nights", Question: "How many nights?"},
	}
	d := NewDialogState(slots)
	d.Merge(map[string]any{"people": 3, "nights": int64(2)})

	if v, _ := d.Value("people"); v != "3" {
		t.Errorf("people = %q, want 3", v)
	}
	if v, _ := d.Value("nights"); v != "2" {
		t.Errorf("nights = %q, want 2", v)
	}
}

func TestMergeIgnoresListsAndObjects(t *testing.T) {
	d := NewDialogState(bookingSlots())
	d.Merge(map[string]any{"date": "friday"})
	d.Merge(map[string]any{
		"date":            []any{"saturday"},
		"restaurant_name": map[string]any{"name": "italian"},
	})

	if v, _ := d.Value("date"); v != "friday" {
		t.Errorf("list value overwrote date: %q", v)
	}
	if _, ok := d.Value("restaurant_name"); ok {
		t.Error("object value was adopted for restaurant_name")
	}
}

func TestMergeTrimsAndIgnoresUnknownKeys(t *testing.T) {
	d := NewDialogState(bookingSlots())
	d.Merge(map[string]any{"date": "  friday  ", "bogus": "x"})

	if v, _ := d.Value("date"); v != "friday" {
		t.Errorf("date = %q, want trimmed friday", v)
	}
	if _, ok := d.Value("bogus"); ok {
		t.Error("unknown key leaked into values")
	}
}

func TestMissingSlotsKeepRegistrationOrder(t *testing.T) {
	d := NewDialogState(bookingSlots())
	d.Merge(map[string]any{"date": "friday"})

	missing := d.MissingSlots()
	if len(missing) != 2 {
		t.Fatalf("missing = %d slots, want 2", len(missing))
	}
	if missing[0].Name != "restaurant_name" || missing[1].Name != "time" {
		t.Errorf("missing order = %s, %s", missing[0].Name, missing[1].Name)
	}
}

func TestNextActionReadyIffNoMissingSlots(t *testing.T) {
	d := NewDialogState(bookingSlots())

	action := d.NextAction()
	if action.Type != ActionAskSlot || action.Slot.Name != "restaurant_name" {
		t.Fatalf("expected ask_slot restaurant_name, got %+v", action)
	}
	// Idempotent without new input.
	again := d.NextAction()
	if again.Type != action.Type || again.Slot.Name != action.Slot.Name {
		t.Errorf("NextAction not idempotent: %+v then %+v", action, again)
	}

	d.Merge(map[string]any{"restaurant_name": "italian", "date": "friday", "time": "8pm"})
	if d.Status() != StatusReady {
		t.Errorf("status = %s, want ready", d.Status())
	}
	if a := d.NextAction(); a.Type != ActionReady {
		t.Errorf("action = %+v, want ready", a)
	}
	if a := d.NextAction(); a.Type != ActionReady {
		t.Errorf("NextAction not idempotent when ready: %+v", a)
	}
}

func TestSlotlessStateIsImmediatelyReady(t *testing.T) {
	d := NewDialogState(nil)
	if d.Status() != StatusReady {
		t.Errorf("status = %s, want ready", d.Status())
	}
	if a := d.NextAction(); a.Type != ActionReady {
		t.Errorf("action = %+v, want ready", a)
	}
	if missing := d.MissingSlots(); len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestValuesReturnsACopy(t *testing.T) {
	d := NewDialogState(bookingSlots())
	d.Merge(map[string]any{"date": "friday"})

	values := d.Values()
	values["date"] = "tampered"
	if v, _ := d.Value("date"); v != "friday" {
		t.Errorf("Values() exposed internal map: date = %q", v)
	}
}
