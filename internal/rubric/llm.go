package rubric

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// tokenEstimateDivisor is the bytes-per-token heuristic used when the
// tokenizer is unavailable.
const tokenEstimateDivisor = 4

// scoreCompletionTokens bounds the completion: the model only needs to
// return a number.
const scoreCompletionTokens = 8

// ErrNoCompletion is returned when the LLM returns no usable choice.
var ErrNoCompletion = errors.New("llm returned no completion")

// ErrUnparsableScore is returned when a semantic check response does
// not contain a score.
var ErrUnparsableScore = errors.New("unparsable score in llm response")

// LLMClient issues one budget-admitted completion per semantic check.
type LLMClient interface {
	Complete(ctx context.Context, prompt string, maxPromptTokens int) (string, error)
}

// LLMConfig configures the OpenAI-backed client.
type LLMConfig struct {
	APIKey string `json:"-"     mapstructure:"api_key"`
	Model  string `json:"model" mapstructure:"model"`
}

// OpenAIClient implements LLMClient on the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an LLM client for semantic checks.
func NewOpenAIClient(cfg LLMConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIClient{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}
}

// Complete sends the prompt, truncated to maxPromptTokens, and returns
// the raw completion text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxPromptTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: TruncateToTokens(prompt, maxPromptTokens)},
		},
		MaxCompletionTokens: scoreCompletionTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// getEncoder lazily initializes the cl100k tokenizer. Initialization
// failures fall back to the byte-length heuristic.
func getEncoder() *tiktoken.Tiktoken {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			encoder = enc
		}
	})
	return encoder
}

// EstimateTokens returns the token count of text, or a byte-length
// estimate when the tokenizer is unavailable.
func EstimateTokens(text string) int {
	if enc := getEncoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text)/tokenEstimateDivisor + 1
}

// TruncateToTokens cuts text down to at most maxTokens tokens.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	if enc := getEncoder(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return enc.Decode(tokens[:maxTokens])
	}

	maxBytes := maxTokens * tokenEstimateDivisor
	if len(text) <= maxBytes {
		return text
	}
	return text[:maxBytes]
}

// ParseScore extracts the first 0-5 numeric score from an LLM response.
func ParseScore(response string) (float64, error) {
	for _, field := range strings.Fields(response) {
		trimmed := strings.Trim(field, ".,:;!")
		score, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > MaxCheckScore {
			score = MaxCheckScore
		}
		return score, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnparsableScore, response)
}
