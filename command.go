package skillagent

import (
	"context"
	"strings"
)

// StaticCommandParser matches reset keywords by exact, case-insensitive
// comparison against the trimmed input.
type StaticCommandParser struct {
	ResetKeywords []string
}

// NewStaticCommandParser returns a parser with the default reset keyword set.
func NewStaticCommandParser() *StaticCommandParser {
	return &StaticCommandParser{
		ResetKeywords: []string{"reset", "cancel", "stop", "start over"},
	}
}

func (p *StaticCommandParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, keyword := range p.ResetKeywords {
		if normalized == keyword {
			return CommandReset, nil
		}
	}
	return CommandNone, nil
}

var _ CommandParser = (*StaticCommandParser)(nil)
