package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/echimine/skillagent"
)

// weatherHandler returns structured data; the orchestrator renders it into
// prose through the skill's final prompt.
func weatherHandler(ctx context.Context, values map[string]string) (*skillagent.HandlerResult, error) {
	return &skillagent.HandlerResult{
		Data: map[string]any{
			"type": "weather_result",
			"city": values["city"],
			"date": values["date"],
			"forecast": map[string]any{
				"summary":         "sunny with a few clouds",
				"temperature_min": 5,
				"temperature_max": 14,
			},
			"note": "Weather data is made up in this example.",
		},
	}, nil
}

// bookingHandler answers directly with a recap string.
func bookingHandler(ctx context.Context, values map[string]string) (*skillagent.HandlerResult, error) {
	return &skillagent.HandlerResult{
		Message: fmt.Sprintf(
			"Done! To recap: a table at %s on %s at %s for %s people. (No real booking is made, this is an example.)",
			values["restaurant_name"], values["date"], values["time"], values["people"],
		),
	}, nil
}

func writeNoteHandler(ctx context.Context, values map[string]string) (*skillagent.HandlerResult, error) {
	name := strings.TrimSuffix(values["name"], ".txt")
	if err := os.WriteFile(name+".txt", []byte(values["content"]), 0o644); err != nil {
		return nil, fmt.Errorf("write note: %w", err)
	}
	return &skillagent.HandlerResult{
		Message: fmt.Sprintf("The note has been written to %s.txt.", name),
	}, nil
}

func readNoteHandler(ctx context.Context, values map[string]string) (*skillagent.HandlerResult, error) {
	path := values["file_path"]
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &skillagent.HandlerResult{Message: fmt.Sprintf("The file %s does not exist.", path)}, nil
		}
		return nil, fmt.Errorf("read note: %w", err)
	}
	return &skillagent.HandlerResult{
		Message: fmt.Sprintf("Contents of %s:\n%s", path, content),
	}, nil
}

func buildSkills() []*skillagent.Skill {
	weather := &skillagent.Skill{
		Name:        "weather",
		Description: "questions about the weather for a city and a date",
		Slots: []skillagent.Slot{
			{
				Name:        "city",
				Description: "the city for the forecast (e.g. Annecy, Paris, Lyon)",
				Question:    "Which city do you want the weather for?",
			},
			{
				Name:        "date",
				Description: "the date for the forecast (e.g. today, tomorrow, 2026-09-15)",
				Question:    "Which date do you want the weather for?",
			},
		},
		FinalPrompt: `You are a weather assistant.
You receive structured data (city, date, forecast, ...) and must phrase a
concise, natural weather answer.`,
		OnReady: weatherHandler,
	}

	booking := &skillagent.Skill{
		Name:        "booking",
		Description: "organizing a restaurant reservation",
		Slots: []skillagent.Slot{
			{
				Name:        "restaurant_name",
				Description: "the restaurant name or cuisine (e.g. italian, japanese)",
				Question:    "Which restaurant or cuisine would you like to book?",
			},
			{
				Name:        "date",
				Description: "the date of the reservation",
				Question:    "Which day would you like to book for?",
			},
			{
				Name:        "time",
				Description: "the time of the reservation",
				Question:    "At what time?",
			},
			{
				Name:        "people",
				Description: "the number of people",
				Question:    "For how many people?",
			},
		},
		FinalPrompt: `You are an assistant that helps book restaurants.
You receive either structured data or a summary, and you must recap the
reservation clearly.`,
		OnReady: bookingHandler,
	}

	writeNote := &skillagent.Skill{
		Name:        "write_note",
		Description: "write content into a text file",
		Slots: []skillagent.Slot{
			{
				Name:        "name",
				Description: "the name of the file to create",
				Question:    "What should the file be called?",
			},
			{
				Name:        "content",
				Description: "the content of the file",
				Question:    "What should the file contain?",
			},
		},
		FinalPrompt: `You are a note-taking assistant. Confirm what was written and where.`,
		OnReady:     writeNoteHandler,
	}

	readNote := &skillagent.Skill{
		Name:        "read_note",
		Description: "read content from a text file",
		Slots: []skillagent.Slot{
			{
				Name:        "file_path",
				Description: "the path of the text file to read",
				Question:    "Which file should I read?",
			},
		},
		FinalPrompt: `You are a note-taking assistant. Return the file content clearly.`,
		OnReady:     readNoteHandler,
	}

	smalltalk := &skillagent.Skill{
		Name:        "smalltalk",
		Description: "general conversation, miscellaneous questions, chatting about anything",
		FinalPrompt: `You are a general conversational assistant.
Answer naturally, in a friendly and concise way.`,
	}

	return []*skillagent.Skill{weather, booking, writeNote, readNote, smalltalk}
}
