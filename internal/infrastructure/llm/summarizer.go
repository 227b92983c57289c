// Package llm writes the natural-language wallet analysis through an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"walletscope/internal/domain"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"
)

const systemPrompt = `You are a blockchain address analyst. Write the report only from the facts JSON supplied by the user; never look up or guess on-chain data. Answer in plain prose: no JSON, tables or code blocks, and do not show your reasoning.
Structure (skip a section when its chain is absent):
1) Overview (1-2 sentences): address kind, chains covered (ETH/BSC/SOL), recent activity window, approximate total assets.
2) ETH analysis (2-5 sentences): main holdings with amounts and rough share, recent interaction types and protocols, observable patterns. Anchor key claims with the last 6 characters of a tx hash or a protocol name.
3) BSC analysis (2-5 sentences): as above.
4) SOL analysis (2-5 sentences): as above, naming programs such as Jupiter, Orca, Raydium or Solend.
5) Overall assessment (1-3 sentences): a cautious cross-chain reading with 2-3 evidence anchors; write "insufficient evidence" when unsure.
6) Caveats (1-3 sentences): data gaps such as many unknown_calls, current rather than historical prices, missing internal transactions.
Keep it under 400 words. Do not infer identity or attribute the address to real-world parties.`

const factsGuide = `Notes:
- facts.chains is an array of {"chain","holdings","actions","features"}.
- holdings: [{"symbol","contract","decimals","balance","usd"}]; actions: [{"ts","hash","to","protocol","type","method","erc20_in_cnt","erc20_out_cnt"}].
- features: {"unknown_calls","approvals","swaps","unique_protocols"}.
- profile: {"address","kind"}.`

// chatCompleter is the part of openai.Client the summarizer needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RetryDelay separates the two attempts.
	RetryDelay time.Duration
}

type Summarizer struct {
	client     chatCompleter
	model      string
	timeout    time.Duration
	retryDelay time.Duration
}

func NewSummarizer(cfg Config) (*Summarizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	return newSummarizer(openai.NewClientWithConfig(clientCfg), cfg), nil
}

func newSummarizer(client chatCompleter, cfg Config) *Summarizer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 600 * time.Millisecond
	}
	return &Summarizer{client: client, model: cfg.Model, timeout: cfg.Timeout, retryDelay: cfg.RetryDelay}
}

type facts struct {
	Profile domain.Profile       `json:"profile"`
	Chains  []domain.ChainRecord `json:"chains"`
}

// Summarize asks the model for the report. A failed request is retried once
// with the same prompt; an empty answer is retried once with a stricter one.
func (s *Summarizer) Summarize(ctx context.Context, profile domain.Profile, chains []domain.ChainRecord) (string, error) {
	payload, err := json.MarshalIndent(facts{Profile: profile, Chains: chains}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal facts: %w", err)
	}
	userPrompt := "Describe the facts first: token kinds and amounts, interaction types and protocols, approvals. Speculate only in the overall assessment and anchor every claim.\n\nFacts JSON:\n" +
		string(payload) + "\n\n" + factsGuide

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
		content, err := s.complete(ctx, userPrompt)
		if err == nil {
			return content, nil
		}
		lastErr = err
		slog.Warn("llm completion failed", "attempt", attempt+1, "err", err)
		if errors.Is(err, errEmptyAnswer) {
			userPrompt = "Return the analysis strictly as plain prose, not JSON.\n\nData:\n" + string(payload)
		}
	}
	return "", lastErr
}

var errEmptyAnswer = errors.New("empty completion")

func (s *Summarizer) complete(ctx context.Context, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		// A literal zero is dropped from the request body.
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyAnswer
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyAnswer
	}
	return content, nil
}
