package main

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/config"
)

const (
	openaiBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"
)

// newChatClient builds the chat client for the one configured backend. Groq
// and LM Studio speak the OpenAI API, so the choice is just a base URL, a
// token, and a model name. Precedence: a configured LM Studio endpoint wins,
// then OpenAI, then Groq.
func newChatClient(cfg *config.Config) (*openai.Chat, string, error) {
	var baseURL, token, model string
	switch {
	case cfg.LMStudioAddr() != "":
		baseURL = "http://" + cfg.LMStudioAddr() + "/v1"
		token = "lm-studio" // local server ignores the token, the client requires one
		model = cfg.LMStudioModel
	case cfg.OpenAIAPIKey != "":
		baseURL = openaiBaseURL
		token = cfg.OpenAIAPIKey
		model = cfg.Model
	default:
		baseURL = groqBaseURL
		token = cfg.GroqAPIKey
		model = cfg.GroqModel
	}

	llm, err := openai.NewChat(openai.WithModel(model), openai.WithBaseURL(baseURL), openai.WithToken(token))
	if err != nil {
		return nil, "", fmt.Errorf("creating chat client: %w", err)
	}
	return llm, model, nil
}
