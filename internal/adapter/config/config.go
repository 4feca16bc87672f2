package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	Triggers   TriggerConfig    `yaml:"triggers"`
	Responses  map[int][]string `yaml:"responses"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port int    `yaml:"port" env:"HYBRIDBOT_PORT"`
	Host string `yaml:"host" env:"HYBRIDBOT_HOST"`
}

// OllamaConfig はOllama設定
type OllamaConfig struct {
	BaseURL string        `yaml:"base_url" env:"OLLAMA_BASE_URL"`
	Model   string        `yaml:"model" env:"OLLAMA_MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"OLLAMA_TIMEOUT"`
}

// TriggerConfig は生成サービスへの明示委譲フレーズ設定
type TriggerConfig struct {
	Phrases            []string `yaml:"phrases" env:"HYBRIDBOT_TRIGGERS" envSeparator:","`
	DefaultInstruction string   `yaml:"default_instruction" env:"HYBRIDBOT_DEFAULT_INSTRUCTION"`
}

// ClassifierConfig は学習済み分類モデル設定
type ClassifierConfig struct {
	ArtifactPath string `yaml:"artifact_path" env:"HYBRIDBOT_CLASSIFIER_ARTIFACT"` // 空なら分類器なしで動作
}

// LogConfig はログ設定
type LogConfig struct {
	Level     string `yaml:"level" env:"HYBRIDBOT_LOG_LEVEL"`
	Format    string `yaml:"format" env:"HYBRIDBOT_LOG_FORMAT"`
	File      string `yaml:"file" env:"HYBRIDBOT_LOG_FILE"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// DefaultTriggerPhrases は既定のトリガーフレーズ
var DefaultTriggerPhrases = []string{
	"ollama",
	"llama",
	"hablar con ollama",
	"hablar con llama",
	"habla con ollama",
	"habla con llama",
}

// DefaultResponses は既定のクラスタ別応答候補
func DefaultResponses() map[int][]string {
	return map[int][]string{
		0: {
			"¡Hola! 😊 ¿Como estás?",
			"¡Que gusto saludarte!",
			"¡Hola! ¿en que puedo ayudarte?",
		},
		1: {
			"Hasta luego",
			"Nos vemos pronto",
			"Cuidate espero verte de nuevo",
		},
		2: {
			"Soy un asistente virtual creado para ayudarte",
			"¡Por supuesto! ¿con que necesitas ayuda?",
			"Cuentame tu problema y buscaré solución",
		},
		3: {
			"Puedo ofrecerte información o resolver tus dudas",
			"¡En que te puedo ayudar!",
			"Estoy aquí para resolver tus preguntas",
		},
		4: {
			"¡Gracias a ti! ❤️",
			"De nada, me alegra ser de ayuda",
			"¡Muy amable de tu parte!",
		},
		5: {
			"Lamento que te sientas así, puedo intentarlo de nuevo",
			"Parece que algo no salió bien, ¿Quieres que lo revisemos?",
			"No siempre soy perfecto",
		},
	}
}

// LoadConfig は設定ファイルを読み込む
//
// pathが空の場合はファイルを読まず、既定値と環境変数のみで構成する。
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		// ファイル読み込み
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// YAMLパース
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	// デフォルト値設定
	cfg.setDefaults()

	// 環境変数で上書き
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults はデフォルト値を設定
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://127.0.0.1:11434"
	}

	if c.Ollama.Model == "" {
		c.Ollama.Model = "gemma3:1b"
	}

	if c.Ollama.Timeout == 0 {
		c.Ollama.Timeout = 45 * time.Second
	}

	// 明示的な空リスト（phrases: []）はトリガー無効として尊重する
	if c.Triggers.Phrases == nil {
		c.Triggers.Phrases = append([]string(nil), DefaultTriggerPhrases...)
	}

	if c.Triggers.DefaultInstruction == "" {
		c.Triggers.DefaultInstruction = "dame un saludo"
	}

	if c.Responses == nil {
		c.Responses = DefaultResponses()
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
}

// Validate は設定の妥当性を検証
func (c *Config) Validate() error {
	// サーバー設定検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	// Ollama設定検証
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base_url is required")
	}

	u, err := url.Parse(c.Ollama.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid ollama base_url: %q", c.Ollama.BaseURL)
	}

	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama model is required")
	}

	if c.Ollama.Timeout <= 0 {
		return fmt.Errorf("ollama timeout must be positive, got %s", c.Ollama.Timeout)
	}

	// 応答テーブル検証
	for id, replies := range c.Responses {
		if id < 0 {
			return fmt.Errorf("responses: negative cluster id %d", id)
		}
		if len(replies) == 0 {
			return fmt.Errorf("responses: cluster %d has no candidates", id)
		}
	}

	// ログ設定検証
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %q (must be text or json)", c.Log.Format)
	}

	return nil
}
