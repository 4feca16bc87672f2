package orchestrator

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Nyukimin/hybridbot/internal/domain/intent"
	"github.com/Nyukimin/hybridbot/internal/domain/llm"
	"github.com/Nyukimin/hybridbot/internal/domain/reply"
	"github.com/Nyukimin/hybridbot/internal/domain/routing"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/logging"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/metrics"
)

// ProcessMessageRequest はメッセージ処理リクエスト
type ProcessMessageRequest struct {
	RequestID   string // 空なら生成する
	UserMessage string
}

// ProcessMessageResponse はメッセージ処理レスポンス
type ProcessMessageResponse struct {
	Response  string
	Route     routing.Route
	Reason    string
	Cluster   intent.ClusterID
	Failure   llm.FailureKind
	RequestID string
}

// TriggerDetector はトリガーフレーズの検出を担当
type TriggerDetector interface {
	Detect(text string) (triggered bool, cleaned string)
}

// ReplySelector はクラスタ別の定型応答選択を担当
type ReplySelector interface {
	Select(id intent.ClusterID) (found bool, reply string)
}

// FallbackClient は生成サービスへのフォールバックを担当
type FallbackClient interface {
	Generate(ctx context.Context, text string) llm.Outcome
}

// Engine は起動時に一度だけ構築される不変の依存関係
//
// Modelはnilでもよい（分類器の読み込み失敗時）。その場合は常にフォールバックする。
type Engine struct {
	Triggers TriggerDetector
	Model    intent.Model
	Replies  ReplySelector
	Fallback FallbackClient
	Metrics  *metrics.Recorder
}

// MessageOrchestrator はメッセージ処理を統括
//
// メッセージ間で状態を持たないため、複数のgoroutineから同時に呼び出してよい。
type MessageOrchestrator struct {
	engine Engine
}

// NewMessageOrchestrator は新しいMessageOrchestratorを作成
func NewMessageOrchestrator(engine Engine) *MessageOrchestrator {
	return &MessageOrchestrator{
		engine: engine,
	}
}

// HandleMessage はメッセージに対する応答文を返す。応答は常に空でない
func (o *MessageOrchestrator) HandleMessage(ctx context.Context, rawText string) string {
	return o.ProcessMessage(ctx, ProcessMessageRequest{UserMessage: rawText}).Response
}

// ProcessMessage はメッセージを処理
func (o *MessageOrchestrator) ProcessMessage(ctx context.Context, req ProcessMessageRequest) ProcessMessageResponse {
	requestID := req.RequestID
	if requestID == "" {
		requestID = NewRequestID()
	}
	ctx = logging.WithRequestID(ctx, requestID)

	resp := o.route(ctx, req.UserMessage)
	resp.RequestID = requestID

	o.engine.Metrics.ObserveRoute(resp.Route.String())
	fields := log.Fields{
		"route":   resp.Route,
		"reason":  resp.Reason,
		"cluster": resp.Cluster,
	}
	if resp.Route.UsesGenerator() {
		fields["failure"] = resp.Failure
	}
	log.WithContext(ctx).WithFields(fields).Info("message handled")

	return resp
}

// route は1メッセージを状態遷移に沿って処理
func (o *MessageOrchestrator) route(ctx context.Context, text string) ProcessMessageResponse {
	// 1. 空入力
	if strings.TrimSpace(text) == "" {
		return respond(routing.NewDecision(routing.RouteEMPTY, "empty input"), reply.EmptyInputPrompt, intent.Unavailable)
	}

	// 2. トリガー検出
	if triggered, cleaned := o.engine.Triggers.Detect(text); triggered {
		log.WithContext(ctx).Debug("trigger phrase detected, delegating to generation service")
		return o.fallback(ctx, cleaned, routing.NewDecision(routing.RouteTRIGGER, "trigger phrase"), intent.Unavailable)
	}

	// 3. 分類
	cluster := intent.Classify(o.engine.Model, text)
	o.engine.Metrics.ObserveCluster(cluster.String())

	// 4. 定型応答の選択
	if found, selected := o.engine.Replies.Select(cluster); found {
		return respond(routing.NewDecision(routing.RouteTEMPLATE, "cluster reply"), selected, cluster)
	}

	// 5. 元のテキストでフォールバック
	reason := "unknown cluster"
	if cluster == intent.Unavailable {
		reason = "classifier unavailable"
	}
	log.WithContext(ctx).WithField("cluster", cluster).Debugf("%s, falling back", reason)
	return o.fallback(ctx, text, routing.NewDecision(routing.RouteFALLBACK, reason), cluster)
}

// fallback は生成サービスを呼び出し、結果を応答文に変換
func (o *MessageOrchestrator) fallback(ctx context.Context, text string, decision routing.Decision, cluster intent.ClusterID) ProcessMessageResponse {
	outcome := o.engine.Fallback.Generate(ctx, text)
	resp := respond(decision, outcome.Reply(), cluster)
	resp.Failure = outcome.Failure
	return resp
}

func respond(decision routing.Decision, text string, cluster intent.ClusterID) ProcessMessageResponse {
	return ProcessMessageResponse{
		Response: text,
		Route:    decision.Route,
		Reason:   decision.Reason,
		Cluster:  cluster,
	}
}
