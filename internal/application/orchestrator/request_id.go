package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRequestID はメッセージ単位の相関IDを生成
//
// フォーマット: YYYYMMDD-HHMMSS-{UUID先頭8文字}
func NewRequestID() string {
	now := time.Now()
	return fmt.Sprintf("%s-%s", now.Format("20060102-150405"), uuid.New().String()[:8])
}
