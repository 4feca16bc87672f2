package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/Nyukimin/hybridbot/internal/domain/llm"
)

// DefaultTimeout は生成1回あたりの既定の時間予算
const DefaultTimeout = 45 * time.Second

// generateRequest は /api/generate のリクエストボディ
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// OllamaProvider はOllama APIプロバイダーの実装
//
// 1回の呼び出しにつき1リクエストのみ送信し、リトライはしない。
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider は新しいOllamaProviderを作成
func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate はLLM生成を実行
//
// 返すエラーはllm.ErrConnection、llm.ErrRequest、llm.ErrMalformedResponseのいずれかをラップする。
// responseフィールドの欠落はエラーではなく空のContentとして返す。
func (p *OllamaProvider) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("%w: failed to marshal request: %v", llm.ErrRequest, err)
	}

	// HTTPリクエスト作成
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("%w: failed to create request: %v", llm.ErrRequest, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// リクエスト実行
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if isConnectionError(err) {
			return llm.GenerateResponse{}, fmt.Errorf("%w: %s: %v", llm.ErrConnection, p.baseURL, err)
		}
		return llm.GenerateResponse{}, fmt.Errorf("%w: failed to execute request: %v", llm.ErrRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("%w: failed to read response: %v", llm.ErrRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		return llm.GenerateResponse{}, fmt.Errorf("%w: ollama API error: status=%d, body=%s", llm.ErrRequest, resp.StatusCode, truncate(body, 256))
	}

	if !gjson.ValidBytes(body) {
		return llm.GenerateResponse{}, fmt.Errorf("%w: body=%s", llm.ErrMalformedResponse, truncate(body, 256))
	}

	result := gjson.ParseBytes(body)
	return llm.GenerateResponse{
		Content: result.Get("response").String(),
		Model:   result.Get("model").String(),
		Done:    result.Get("done").Bool(),
	}, nil
}

// Ping はOllamaサーバーへの到達性を確認
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// Name はプロバイダー名を返す
func (p *OllamaProvider) Name() string {
	return fmt.Sprintf("ollama-%s", p.model)
}

// isConnectionError は応答を受け取る前に接続が成立しなかった、または切断されたかを判定
//
// タイムアウトは含めない。応答前の切断（EOF、ECONNRESET）は接続失敗として扱う。
func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
