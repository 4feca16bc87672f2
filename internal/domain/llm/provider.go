package llm

import (
	"context"
	"errors"
)

// 生成サービス呼び出しの失敗分類に使う番兵エラー
var (
	// ErrConnection はサービスに到達できない（接続拒否・名前解決失敗など）
	ErrConnection = errors.New("generation service unreachable")

	// ErrRequest は接続以外の通信・プロトコル失敗（不正なステータス、タイムアウトなど）
	ErrRequest = errors.New("generation request failed")

	// ErrMalformedResponse は応答本文を解釈できない
	ErrMalformedResponse = errors.New("malformed generation response")
)

// GenerateRequest はLLM生成リクエスト
type GenerateRequest struct {
	Prompt string
}

// GenerateResponse はLLM生成レスポンス
//
// Contentが空の場合もエラーではない。空応答の扱いは呼び出し側が決める。
type GenerateResponse struct {
	Content string
	Model   string
	Done    bool
}

// LLMProvider はLLMプロバイダーの抽象化
type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}
