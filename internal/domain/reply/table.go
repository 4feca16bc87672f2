package reply

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/Nyukimin/hybridbot/internal/domain/intent"
)

// ErrInvalidTable は応答テーブルの構成が不正な場合のエラー
var ErrInvalidTable = errors.New("invalid response table")

// Picker は候補の中から1つを選ぶ乱数源
type Picker interface {
	// IntN は [0, n) の一様乱数を返す
	IntN(n int) int
}

// globalPicker はmath/rand/v2のグローバル乱数源（並行安全）
type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Table はクラスタ番号から応答候補への不変な対応表
type Table struct {
	candidates map[intent.ClusterID][]string
	picker     Picker
}

// NewTable は新しいTableを作成
//
// 負のクラスタ番号と空の候補列はエラー。pickerがnilならmath/rand/v2を使う。
func NewTable(entries map[int][]string, picker Picker) (*Table, error) {
	candidates := make(map[intent.ClusterID][]string, len(entries))
	for id, replies := range entries {
		if id < 0 {
			return nil, fmt.Errorf("%w: negative cluster id %d", ErrInvalidTable, id)
		}
		if len(replies) == 0 {
			return nil, fmt.Errorf("%w: cluster %d has no candidates", ErrInvalidTable, id)
		}
		for i, r := range replies {
			if r == "" {
				return nil, fmt.Errorf("%w: cluster %d candidate %d is empty", ErrInvalidTable, id, i)
			}
		}
		candidates[intent.ClusterID(id)] = append([]string(nil), replies...)
	}

	if picker == nil {
		picker = globalPicker{}
	}

	return &Table{
		candidates: candidates,
		picker:     picker,
	}, nil
}

// Select はクラスタに対応する候補から一様ランダムに1つ選ぶ
//
// クラスタがテーブルにない場合（intent.Unavailableを含む）はfound=false。
// フォールバックは呼び出し側の責務。
func (t *Table) Select(id intent.ClusterID) (found bool, reply string) {
	replies, ok := t.candidates[id]
	if !ok {
		return false, ""
	}
	return true, replies[t.picker.IntN(len(replies))]
}

// Candidates はクラスタの候補列のコピーを返す
func (t *Table) Candidates(id intent.ClusterID) []string {
	return append([]string(nil), t.candidates[id]...)
}

// Clusters は登録済みクラスタ番号を昇順で返す
func (t *Table) Clusters() []intent.ClusterID {
	ids := make([]intent.ClusterID, 0, len(t.candidates))
	for id := range t.candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
