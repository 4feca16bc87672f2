package llm

import "github.com/Nyukimin/hybridbot/internal/domain/reply"

// FailureKind は生成サービス呼び出しの失敗種別
type FailureKind int

const (
	FailureNone          FailureKind = iota // 成功
	FailureConnection                       // サービスに接続できない
	FailureRequest                          // その他の通信・プロトコル・タイムアウト失敗
	FailureEmptyResponse                    // 生成テキストが空または欠落
)

// String はFailureKindの文字列表現を返す
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureConnection:
		return "connection"
	case FailureRequest:
		return "request"
	case FailureEmptyResponse:
		return "empty_response"
	default:
		return "unknown"
	}
}

// Outcome はフォールバック呼び出しの結果（成功テキストまたは失敗種別）
type Outcome struct {
	Text    string
	Failure FailureKind
}

// Succeeded は生成テキストを得られたかを判定
func (o Outcome) Succeeded() bool {
	return o.Failure == FailureNone
}

// Reply は利用者に返す応答文を返す
//
// 失敗時は種別ごとの固定メッセージになり、空文字列は返さない。
func (o Outcome) Reply() string {
	switch o.Failure {
	case FailureNone:
		if o.Text == "" {
			return reply.EmptyGeneration
		}
		return o.Text
	case FailureConnection:
		return reply.ConnectionFailure
	case FailureEmptyResponse:
		return reply.EmptyGeneration
	default:
		return reply.RequestFailure
	}
}
