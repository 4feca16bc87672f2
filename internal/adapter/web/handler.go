package web

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/Nyukimin/hybridbot/internal/application/orchestrator"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/metrics"
)

//go:embed index.html
var indexPage []byte

// Orchestrator はメッセージ処理のインターフェース
type Orchestrator interface {
	ProcessMessage(ctx context.Context, req orchestrator.ProcessMessageRequest) orchestrator.ProcessMessageResponse
}

// Probe は生成サービスの到達性確認
type Probe func(ctx context.Context) error

// Options はハンドラーの任意設定
type Options struct {
	ClassifierLoaded bool
	GeneratorProbe   Probe
	Metrics          *metrics.Recorder
}

// Handler はチャットのHTTPハンドラー
type Handler struct {
	orchestrator Orchestrator
	opts         Options
	engine       *gin.Engine
}

// chatRequest は /chat のリクエスト（フォームまたはJSON）
type chatRequest struct {
	Message string `form:"message" json:"message"`
}

// NewHandler は新しいHandlerを作成
func NewHandler(orch Orchestrator, opts Options) *Handler {
	h := &Handler{
		orchestrator: orch,
		opts:         opts,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog())

	engine.GET("/", h.handleIndex)
	engine.POST("/chat", h.handleChat)
	engine.GET("/health", h.handleHealth)
	if reg := opts.Metrics.Registry(); reg != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	h.engine = engine
	return h
}

// ServeHTTP はHTTPリクエストを処理
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

// handleIndex はチャット画面を返す
func (h *Handler) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
}

// handleChat は1メッセージを処理して応答を返す
func (h *Handler) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp := h.orchestrator.ProcessMessage(c.Request.Context(), orchestrator.ProcessMessageRequest{
		RequestID:   c.GetHeader("X-Request-ID"),
		UserMessage: req.Message,
	})

	c.Header("X-Request-ID", resp.RequestID)
	c.JSON(http.StatusOK, gin.H{"response": resp.Response})
}

// handleHealth はヘルスチェック
//
// 分類器や生成サービスが使えなくても応答は劣化するだけなので、常に200を返す。
func (h *Handler) handleHealth(c *gin.Context) {
	classifier := "unavailable"
	if h.opts.ClassifierLoaded {
		classifier = "loaded"
	}

	generator := "unknown"
	if h.opts.GeneratorProbe != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.GeneratorProbe(ctx); err != nil {
			generator = "unreachable"
		} else {
			generator = "ok"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"classifier": classifier,
		"generator":  generator,
	})
}

// accessLog はアクセスログをlogrusに出力
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Millisecond),
		}).Debug("http request")
	}
}
