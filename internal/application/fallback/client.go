package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Nyukimin/hybridbot/internal/domain/llm"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/metrics"
)

// promptTemplate は生成サービスに送るプロンプトの書式
const promptTemplate = "El usuario dice: '%s'. Responde de manera corta y útil como un asistente virtual."

// Client は生成サービスへのフォールバック呼び出しを担当
//
// 1回の呼び出しは1回の試行のみ。失敗は全てllm.Outcomeの失敗種別に変換し、
// 呼び出し側にエラーを返さない。
type Client struct {
	provider llm.LLMProvider
	timeout  time.Duration
	metrics  *metrics.Recorder
}

// NewClient は新しいClientを作成
func NewClient(provider llm.LLMProvider, timeout time.Duration, recorder *metrics.Recorder) *Client {
	return &Client{
		provider: provider,
		timeout:  timeout,
		metrics:  recorder,
	}
}

// BuildPrompt は入力テキストを埋め込んだプロンプトを構築
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// Generate は生成サービスを呼び出し、結果を返す
func (c *Client) Generate(ctx context.Context, text string) llm.Outcome {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := c.generate(ctx, text)
	c.metrics.ObserveGeneration(outcome.Failure.String(), time.Since(start))

	return outcome
}

func (c *Client) generate(ctx context.Context, text string) llm.Outcome {
	entry := log.WithContext(ctx).WithField("provider", c.provider.Name())

	resp, err := c.provider.Generate(ctx, llm.GenerateRequest{Prompt: BuildPrompt(text)})
	if err != nil {
		if errors.Is(err, llm.ErrConnection) {
			entry.WithError(err).Warn("generation service unreachable")
			return llm.Outcome{Failure: llm.FailureConnection}
		}
		entry.WithError(err).Warn("generation request failed")
		return llm.Outcome{Failure: llm.FailureRequest}
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return llm.Outcome{Failure: llm.FailureEmptyResponse}
	}

	return llm.Outcome{Text: content}
}
