package routing

import (
	"sort"
	"strings"
)

// DefaultInstruction はトリガー除去後に本文が残らなかった場合の指示文
const DefaultInstruction = "dame un saludo"

// TriggerDetector はトリガーフレーズによる生成サービス委譲の検出器
//
// 照合は小文字化した入力に対する部分文字列一致。構築後は不変なので
// 複数のgoroutineから同時に呼び出してよい。
type TriggerDetector struct {
	phrases            []string // 設定順
	removal            []string // 除去順（長いフレーズ優先）
	defaultInstruction string
}

// NewTriggerDetector は新しいTriggerDetectorを作成
//
// フレーズは小文字化・前後空白除去され、空のものは捨てられる。
// defaultInstructionが空ならDefaultInstructionを使う。
func NewTriggerDetector(phrases []string, defaultInstruction string) *TriggerDetector {
	cleaned := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}

	// "hablar con llama" を "llama" より先に除去しないと "hablar con" が残る
	removal := append([]string(nil), cleaned...)
	sort.SliceStable(removal, func(i, j int) bool {
		return len(removal[i]) > len(removal[j])
	})

	if strings.TrimSpace(defaultInstruction) == "" {
		defaultInstruction = DefaultInstruction
	}

	return &TriggerDetector{
		phrases:            cleaned,
		removal:            removal,
		defaultInstruction: defaultInstruction,
	}
}

// Phrases は設定済みフレーズのコピーを返す
func (d *TriggerDetector) Phrases() []string {
	return append([]string(nil), d.phrases...)
}

// Detect はテキストにトリガーフレーズが含まれるかを判定
//
// 含まれる場合、全フレーズの全出現を除去した小文字テキストを返す。
// 除去後に何も残らなければ既定の指示文を返すので、cleanedは空にならない。
func (d *TriggerDetector) Detect(text string) (triggered bool, cleaned string) {
	lower := strings.ToLower(text)

	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			triggered = true
			break
		}
	}
	if !triggered {
		return false, ""
	}

	for _, phrase := range d.removal {
		lower = strings.ReplaceAll(lower, phrase, "")
	}

	cleaned = strings.TrimSpace(lower)
	if cleaned == "" {
		cleaned = d.defaultInstruction
	}
	return true, cleaned
}
