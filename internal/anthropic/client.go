package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.anthropic.com/v1/messages"

// DefaultModel is the generation model for circle guidance.
const DefaultModel = "claude-3-haiku-20240307"

// guideMaxTokens caps facilitator responses; the persona prompt also asks for
// under 100 words so generated text fits the narration slot.
const guideMaxTokens = 300

type Client struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.apiURL = url
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Result is one completed generation.
type Result struct {
	Text  string
	Model string
	Usage Usage
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// guidePreamble is the circle-guide persona wrapped around every prompt.
const guidePreamble = `You are a wise, compassionate AI guide for storytelling circles called "mentehub". Your role is to facilitate meaningful conversations and help participants connect through shared narratives.`

const guideTone = `Please respond in a warm, inclusive tone that creates psychological safety. Keep responses under 100 words and speak directly to the circle participants.`

// GenerateGuideText sends a facilitation prompt wrapped in the circle-guide
// persona. sessionContext is opaque passthrough metadata (phase name,
// participant count, session id) serialized into the prompt for grounding.
func (c *Client) GenerateGuideText(ctx context.Context, prompt string, sessionContext any) (*Result, error) {
	ctxJSON, err := json.MarshalIndent(sessionContext, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	content := fmt.Sprintf("%s\n\nContext: %s\n\n%s\n\n%s", guidePreamble, ctxJSON, prompt, guideTone)
	return c.Complete(ctx, "", []Message{{Role: "user", Content: content}}, guideMaxTokens)
}

// Complete sends a message to the Anthropic API and returns the generation.
func (c *Client) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (*Result, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("api error %d: %s — %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("empty response content")
	}

	return &Result{
		Text:  apiResp.Content[0].Text,
		Model: c.model,
		Usage: apiResp.Usage,
	}, nil
}
