package knowledge

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// 消息角色
const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// Message 带角色的对话消息
type Message struct {
	Role    string
	Content string
}

// Generator 文本生成协作方
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	Ready() bool
}

// ErrGeneratorNotConfigured 未配置API Key
var ErrGeneratorNotConfigured = errors.New("generation provider not configured")

// NoopGenerator 未配置时的占位实现
type NoopGenerator struct{}

func (NoopGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	return "", ErrGeneratorNotConfigured
}

func (NoopGenerator) Ready() bool {
	return false
}

// OpenAIGenerator 使用Chat Completions生成回答
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIGenerator 创建生成器，client为nil时返回占位实现
func NewOpenAIGenerator(client *openai.Client, model string, temperature float32, maxTokens int) Generator {
	if client == nil {
		return NoopGenerator{}
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages to send")
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Ready() bool {
	return g.client != nil
}
