// Command assistant runs a terminal chat session against a llama-server (or
// any OpenAI-compatible endpoint) with weather, booking, note-taking and
// smalltalk skills.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/echimine/skillagent"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	config, err := loadConfig(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(context.Background(), config); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run(ctx context.Context, config *Config) error {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  config.APIKey,
		Model:   config.Model,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("init chat model: %w", err)
	}

	orch, err := skillagent.NewOrchestrator(
		buildSkills(),
		chatModel,
		skillagent.WithDefaultSkill("smalltalk"),
	)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	fmt.Println("Assistant: Hi!")
	fmt.Println("You can ask about the weather, book a restaurant, take notes, or just chat.")
	fmt.Println("Type 'quit' to leave, or 'reset' to drop the current request.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("\nAssistant: Bye!")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			fmt.Println("Assistant: Bye!")
			return nil
		}
		fmt.Println("Assistant:", orch.HandleMessage(ctx, input))
	}
}
