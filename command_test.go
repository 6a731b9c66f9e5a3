package skillagent

import (
	"context"
	"testing"
)

func TestStaticCommandParser(t *testing.T) {
	p := NewStaticCommandParser()
	ctx := context.Background()

	for _, input := range []string{"reset", "RESET", "  cancel  ", "Stop", "start over"} {
		cmd, err := p.ParseCommand(ctx, input)
		if err != nil {
			t.Fatalf("ParseCommand(%q) failed: %v", input, err)
		}
		if cmd != CommandReset {
			t.Errorf("ParseCommand(%q) = %s, want reset", input, cmd)
		}
	}

	for _, input := range []string{"", "please reset my request", "stop it", "weather in Annecy"} {
		cmd, err := p.ParseCommand(ctx, input)
		if err != nil {
			t.Fatalf("ParseCommand(%q) failed: %v", input, err)
		}
		if cmd != CommandNone {
			t.Errorf("ParseCommand(%q) = %s, want none", input, cmd)
		}
	}
}

func TestStaticCommandParserCustomKeywords(t *testing.T) {
	p := &StaticCommandParser{ResetKeywords: []string{"annule", "annuler"}}
	cmd, _ := p.ParseCommand(context.Background(), "Annuler")
	if cmd != CommandReset {
		t.Errorf("custom keyword not recognized: %s", cmd)
	}
	cmd, _ = p.ParseCommand(context.Background(), "reset")
	if cmd != CommandNone {
		t.Error("default keyword still active after replacement")
	}
}
