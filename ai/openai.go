package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAITextGenerator implements TextGenerator against a chat-completions
// style API (OpenAI or any compatible endpoint) using JSON response mode
type OpenAITextGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAITextGenerator creates a new text generator client
func NewOpenAITextGenerator(baseURL, apiKey, model string, timeout time.Duration) (*OpenAITextGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("text generator API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAITextGenerator{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateDecision asks the model what to do with one chat turn
func (g *OpenAITextGenerator) GenerateDecision(ctx context.Context, in TurnInputs) (*ConversationDecision, error) {
	system := companionSystemPrompt(in.Companion) + `
For every reply you must return a JSON object:
{"reply_text": string, "action": "NORMAL"|"SEND_IMAGE_NOW"|"OFFER_IMAGE", "image_context": string}
Use SEND_IMAGE_NOW when the user explicitly asks for a photo of you right now.
Use OFFER_IMAGE sparingly when a photo would fit the moment and you want to offer one first.
When action is not NORMAL, image_context must describe the scene to depict.
Always answer in the user's language.`

	var sb strings.Builder
	if len(in.ContextWindow) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, line := range in.ContextWindow {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("User message: ")
	sb.WriteString(in.UserText)

	var decision ConversationDecision
	if err := g.chatJSON(ctx, system, sb.String(), &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// GenerateSetupPrompt phrases the next onboarding question in the user's language
func (g *OpenAITextGenerator) GenerateSetupPrompt(ctx context.Context, req SetupPromptRequest) (string, error) {
	system := `You are guiding a short onboarding chat for an AI companion.
Rephrase the given canonical question warmly and concisely, in the same language
the user last wrote in. Return a JSON object: {"prompt": string}.`

	user := fmt.Sprintf(
		"Field to collect next: %s\nCanonical question: %s\nUser's last reply (for language matching only): %s",
		req.Field, req.Question, req.UserReply,
	)

	var out struct {
		Prompt string `json:"prompt"`
	}
	if err := g.chatJSON(ctx, system, user, &out); err != nil {
		return "", err
	}
	if out.Prompt == "" {
		return "", errors.New("empty setup prompt from generator")
	}
	return out.Prompt, nil
}

// GenerateOpeningLine produces the first post-setup assistant message
func (g *OpenAITextGenerator) GenerateOpeningLine(ctx context.Context, companion CompanionSpec) (string, error) {
	system := companionSystemPrompt(companion) + `
Write your very first message to the user now that setup is complete:
greet them by name and open a conversation about one of their interests.
Return a JSON object: {"opening_line": string}.`

	var out struct {
		OpeningLine string `json:"opening_line"`
	}
	if err := g.chatJSON(ctx, system, "Write the opening line.", &out); err != nil {
		return "", err
	}
	if out.OpeningLine == "" {
		return "", errors.New("empty opening line from generator")
	}
	return out.OpeningLine, nil
}

// GeneratePromptBatch derives exactly req.Count image prompts from one description
func (g *OpenAITextGenerator) GeneratePromptBatch(ctx context.Context, req PromptBatchRequest) ([]string, error) {
	var system string
	switch req.Kind {
	case BatchPhotoshoot:
		system = fmt.Sprintf(`You write image-generation prompts.
Given a photoshoot theme, produce exactly %d variation prompts. Every variation
keeps the subject's outfit and environment from the reference photo and changes
only pose, camera angle, expression, or a minor action.
Return a JSON object: {"prompts": [string, ...]}.`, req.Count)
	default:
		system = fmt.Sprintf(`You write image-generation prompts.
Given a person's appearance description, produce exactly %d distinct portrait
prompts, each a different take on the same person (framing, lighting, mood).
Return a JSON object: {"prompts": [string, ...]}.`, req.Count)
	}

	var out struct {
		Prompts []string `json:"prompts"`
	}
	if err := g.chatJSON(ctx, system, req.Description, &out); err != nil {
		return nil, err
	}
	if len(out.Prompts) != req.Count {
		return nil, fmt.Errorf("generator returned %d prompts, want %d", len(out.Prompts), req.Count)
	}
	return out.Prompts, nil
}

// GenerateScenePrompt composes a single selfie prompt from the trigger text
func (g *OpenAITextGenerator) GenerateScenePrompt(ctx context.Context, req SceneRequest) (string, error) {
	system := `You write image-generation prompts for a selfie of an AI companion.
The trigger text is the dominant signal; use the recent conversation only as
secondary inspiration when the trigger is generic. The prompt must keep the
person's appearance from the reference photo.
Return a JSON object: {"prompt": string}.`

	var sb strings.Builder
	sb.WriteString("Trigger: ")
	sb.WriteString(req.TriggerText)
	if len(req.ContextWindow) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		sb.WriteString(strings.Join(req.ContextWindow, "\n"))
	}

	var out struct {
		Prompt string `json:"prompt"`
	}
	if err := g.chatJSON(ctx, system, sb.String(), &out); err != nil {
		return "", err
	}
	if out.Prompt == "" {
		return "", errors.New("empty scene prompt from generator")
	}
	return out.Prompt, nil
}

// chatJSON performs one JSON-mode chat completion and decodes the model's
// reply into out
func (g *OpenAITextGenerator) chatJSON(ctx context.Context, system, user string, out any) error {
	requestBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
		Temperature:    0.7,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making API request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &GeneratorError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return fmt.Errorf("error unmarshaling response: %v", err)
	}

	if chatResp.Error != nil {
		return &GeneratorError{Message: chatResp.Error.Message}
	}

	if len(chatResp.Choices) == 0 {
		return errors.New("no response generated")
	}

	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("error unmarshaling model output: %v", err)
	}

	return nil
}

// companionSystemPrompt builds the in-character system prompt shared by the
// turn-level operations
func companionSystemPrompt(c CompanionSpec) string {
	return fmt.Sprintf(
		"You are an AI companion chatting with %s. Your personality: %s. Shared interests: %s. Stay in character, be concise and engaging, and mirror the user's language.",
		c.UserName,
		c.Personality,
		c.Topics,
	)
}
