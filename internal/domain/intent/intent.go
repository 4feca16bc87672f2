package intent

import "fmt"

// ClusterID はクラスタリングモデルが割り当てるクラスタ番号
type ClusterID int

// Unavailable は分類器が利用できないことを表す番兵値
//
// 応答テーブルに存在しないクラスタと同様、下流ではフォールバックとして扱う。
const Unavailable ClusterID = -1

// String はClusterIDの文字列表現を返す
func (c ClusterID) String() string {
	if c == Unavailable {
		return "unavailable"
	}
	return fmt.Sprintf("%d", int(c))
}

// Model は事前学習済みのベクトライザとクラスタリングモデルの組
//
// 実装は不変であり、同じテキストには常に同じクラスタを返すこと。
type Model interface {
	Predict(text string) ClusterID
}

// Classify はテキストをクラスタに分類
//
// modelがnil（読み込み失敗）の場合は常にUnavailableを返す。
func Classify(model Model, text string) ClusterID {
	if model == nil {
		return Unavailable
	}
	return model.Predict(text)
}
