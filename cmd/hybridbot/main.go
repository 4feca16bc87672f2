package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Nyukimin/hybridbot/internal/adapter/config"
	"github.com/Nyukimin/hybridbot/internal/adapter/web"
	"github.com/Nyukimin/hybridbot/internal/application/fallback"
	"github.com/Nyukimin/hybridbot/internal/application/orchestrator"
	"github.com/Nyukimin/hybridbot/internal/domain/intent"
	"github.com/Nyukimin/hybridbot/internal/domain/reply"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/intent/kmeans"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/llm/ollama"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/logging"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/metrics"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/routing"
)

const defaultConfigPath = "./config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "hybridbot",
		Short:        "Virtual assistant that answers with templated replies or a local LLM",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $HYBRIDBOT_CONFIG or ./config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "ask <message>",
		Short: "Route a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(configPath)
			if err != nil {
				return err
			}
			defer deps.Close()

			fmt.Fprintln(cmd.OutOrStdout(), deps.orchestrator.HandleMessage(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	})

	return root
}

// Dependencies はアプリケーション依存関係
type Dependencies struct {
	cfg          *config.Config
	orchestrator *orchestrator.MessageOrchestrator
	handler      http.Handler
	logCloser    io.Closer
}

// Close はログ出力を閉じる
func (d *Dependencies) Close() {
	if d.logCloser != nil {
		_ = d.logCloser.Close()
	}
}

// setup は環境変数・設定・ロガーを読み込み依存関係を構築
func setup(flagPath string) (*Dependencies, error) {
	// .envがあれば読み込む（既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	configPath, err := resolveConfigPath(flagPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	closer, err := logging.Setup(logging.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	if err != nil {
		return nil, err
	}

	if configPath == "" {
		log.Info("No config file found, using defaults and environment")
	} else {
		log.Infof("Loaded config from: %s", configPath)
	}

	deps, err := buildDependencies(cfg)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	deps.logCloser = closer
	return deps, nil
}

// buildDependencies は依存関係を構築
func buildDependencies(cfg *config.Config) (*Dependencies, error) {
	recorder := metrics.NewRecorder()

	// 1. Trigger Detector
	triggers := routing.NewTriggerDetector(cfg.Triggers.Phrases, cfg.Triggers.DefaultInstruction)

	// 2. Intent Classifier（読み込み失敗時は分類なしで継続）
	var model intent.Model
	if path := cfg.Classifier.ArtifactPath; path != "" {
		m, err := kmeans.Load(path)
		if err != nil {
			log.WithError(err).Warn("Classifier unavailable, every non-trigger message will use the generation service")
		} else {
			model = m
			log.Infof("Classifier loaded: %s", m)
		}
	} else {
		log.Warn("No classifier artifact configured, every non-trigger message will use the generation service")
	}

	// 3. Response Table
	table, err := reply.NewTable(cfg.Responses, nil)
	if err != nil {
		return nil, err
	}

	// 4. Generative Fallback Client
	provider := ollama.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.Model, cfg.Ollama.Timeout)
	fallbackClient := fallback.NewClient(provider, cfg.Ollama.Timeout, recorder)
	log.Infof("Generation service: %s at %s (timeout %s)", provider.Name(), cfg.Ollama.BaseURL, cfg.Ollama.Timeout)

	// 5. Routing Orchestrator
	orch := orchestrator.NewMessageOrchestrator(orchestrator.Engine{
		Triggers: triggers,
		Model:    model,
		Replies:  table,
		Fallback: fallbackClient,
		Metrics:  recorder,
	})

	// 6. Adapter (HTTP Handler)
	handler := web.NewHandler(orch, web.Options{
		ClassifierLoaded: model != nil,
		GeneratorProbe:   provider.Ping,
		Metrics:          recorder,
	})

	log.Debug("Dependency injection complete")

	return &Dependencies{
		cfg:          cfg,
		orchestrator: orch,
		handler:      handler,
	}, nil
}

// runServe はHTTPサーバーを起動し、シグナル受信で停止する
func runServe(ctx context.Context, flagPath string) error {
	deps, err := setup(flagPath)
	if err != nil {
		return err
	}
	defer deps.Close()

	addr := fmt.Sprintf("%s:%d", deps.cfg.Server.Host, deps.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           deps.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting hybridbot server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.cfg.Ollama.Timeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// resolveConfigPath は設定ファイルパスを決定
//
// フラグ、HYBRIDBOT_CONFIGの順に優先し、明示されたパスは存在しなければエラー。
// 既定パス（./config.yaml）が存在しない場合は空文字列（既定値のみ）を返す。
func resolveConfigPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if path := os.Getenv("HYBRIDBOT_CONFIG"); path != "" {
		return path, nil
	}
	if _, err := os.Stat(defaultConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat %s: %w", defaultConfigPath, err)
	}
	return defaultConfigPath, nil
}
