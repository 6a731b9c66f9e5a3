package skillagent

import (
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Trimmer bounds a conversation history.
type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepLastNTrimmer keeps the last N messages. N <= 0 keeps nothing.
type KeepLastNTrimmer struct {
	N int
}

func (t KeepLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if t.N <= 0 {
		return nil
	}
	if len(history) <= t.N {
		return history
	}
	return history[len(history)-t.N:]
}

// HistoryStore holds the recent user/assistant turns of one session. It
// feeds the conversational (slot-less) skills so their answers carry
// short-term context; slot extraction and routing calls stay one-shot.
type HistoryStore struct {
	mu      sync.Mutex
	msgs    []*schema.Message
	trimmer Trimmer
}

func NewHistoryStore(trimmer Trimmer) *HistoryStore {
	return &HistoryStore{trimmer: trimmer}
}

// Load returns a copy of the stored history.
func (s *HistoryStore) Load() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Append adds messages (nil entries and consecutive duplicates skipped),
// then trims.
func (s *HistoryStore) Append(msgs ...*schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if n := len(s.msgs); n > 0 {
			last := s.msgs[n-1]
			if last.Role == msg.Role && last.Content == msg.Content {
				continue
			}
		}
		s.msgs = append(s.msgs, msg)
	}
	if s.trimmer != nil {
		s.msgs = s.trimmer.Trim(s.msgs)
	}
}

// Clear drops the stored history.
func (s *HistoryStore) Clear() {
	s.mu.Lock()
	s.msgs = nil
	s.mu.Unlock()
}
