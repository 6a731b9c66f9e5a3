package skillagent

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino-ext/components/model/openai"
)

type liveConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

func initLiveChatModel(t *testing.T) *openai.ChatModel {
	if os.Getenv("SKILLAGENT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set SKILLAGENT_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}

	file, err := os.ReadFile("config.json")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	var conf liveConfig
	if err := sonic.Unmarshal(file, &conf); err != nil {
		t.Skipf("failed to parse config: %v", err)
		return nil
	}
	if conf.APIKey == "" {
		t.Skip("config.json api_key is empty")
		return nil
	}

	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:  conf.APIKey,
		Model:   conf.Model,
		BaseURL: conf.BaseURL,
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	return chatModel
}

// TestLiveWeatherDialog walks a real model through a full weather dialog:
// one slot from the first message, one slot via a follow-up question.
func TestLiveWeatherDialog(t *testing.T) {
	chatModel := initLiveChatModel(t)
	if chatModel == nil {
		return
	}

	var handled map[string]string
	handler := func(ctx context.Context, values map[string]string) (*HandlerResult, error) {
		handled = values
		return &HandlerResult{Data: map[string]any{"forecast": "sunny", "high_c": 24}}, nil
	}

	orch, err := NewOrchestrator(testSkills(handler), chatModel, WithDefaultSkill("smalltalk"))
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}

	ctx := context.Background()
	reply := orch.HandleMessage(ctx, "What's the weather like in Annecy?")
	t.Logf("turn 1 reply: %s", reply)
	if orch.CurrentSkill() != "weather" {
		t.Fatalf("current skill = %q, want weather", orch.CurrentSkill())
	}
	if slot, awaiting := orch.PendingSlot(); !awaiting || slot != "date" {
		t.Fatalf("pending slot = %q (awaiting=%v), want date", slot, awaiting)
	}

	reply = orch.HandleMessage(ctx, "tomorrow please")
	t.Logf("turn 2 reply: %s", reply)
	if handled == nil {
		t.Fatal("handler was never invoked")
	}
	if !strings.EqualFold(handled["city"], "annecy") {
		t.Errorf("city = %q, want Annecy", handled["city"])
	}
	if orch.CurrentSkill() != "" {
		t.Errorf("current skill = %q, want idle after finalize", orch.CurrentSkill())
	}
}

// TestLiveReset checks the reset keyword short-circuits without a model call.
func TestLiveReset(t *testing.T) {
	chatModel := initLiveChatModel(t)
	if chatModel == nil {
		return
	}

	orch, err := NewOrchestrator(testSkills(nil), chatModel)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	if reply := orch.HandleMessage(context.Background(), "reset"); reply != resetAcknowledgement {
		t.Errorf("reply = %q, want the fixed acknowledgement", reply)
	}
}
