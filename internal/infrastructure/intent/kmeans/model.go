// Package kmeans はTF-IDF + k-meansの学習済みモデルによる意図分類を提供する。
//
// 学習は行わない。scikit-learnで学習したTfidfVectorizerとKMeansを
// Artifact形式に書き出したものを読み込み、最近傍重心の割り当てのみを行う。
package kmeans

import (
	"fmt"

	"github.com/Nyukimin/hybridbot/internal/domain/intent"
)

// Model は読み込み済みのベクトライザと重心の組。構築後は不変
type Model struct {
	vec       *vectorizer
	centroids [][]float64
	sqNorms   []float64
}

// NewModel はArtifactからModelを作成
func NewModel(a Artifact) (*Model, error) {
	a.applyDefaults()
	if err := a.validate(); err != nil {
		return nil, err
	}

	vocab := make(map[string]int, len(a.Vocabulary))
	for k, v := range a.Vocabulary {
		vocab[k] = v
	}

	centroids := make([][]float64, len(a.Centroids))
	sqNorms := make([]float64, len(a.Centroids))
	for i, c := range a.Centroids {
		centroids[i] = append([]float64(nil), c...)
		for _, x := range c {
			sqNorms[i] += x * x
		}
	}

	return &Model{
		vec: &vectorizer{
			vocabulary:  vocab,
			idf:         append([]float64(nil), a.IDF...),
			ngramMin:    a.NgramRange[0],
			ngramMax:    a.NgramRange[1],
			sublinearTF: a.SublinearTF,
			l2:          a.Norm == "l2",
		},
		centroids: centroids,
		sqNorms:   sqNorms,
	}, nil
}

// NumClusters はクラスタ数を返す
func (m *Model) NumClusters() int {
	if m == nil {
		return 0
	}
	return len(m.centroids)
}

// String はモデルの概要を返す
func (m *Model) String() string {
	if m == nil {
		return "kmeans(unavailable)"
	}
	return fmt.Sprintf("kmeans(clusters=%d, features=%d)", len(m.centroids), len(m.vec.idf))
}

// Predict はテキストに最も近い重心のクラスタ番号を返す
//
// 距離は二乗ユークリッド距離で、同距離の場合は番号の小さいクラスタを選ぶ。
// 空文字列や未知語のみのテキストはゼロベクトルになり、ノルム最小の重心に割り当てられる。
// nilのModelはintent.Unavailableを返す。
func (m *Model) Predict(text string) intent.ClusterID {
	if m == nil {
		return intent.Unavailable
	}

	x := m.vec.transform(text)

	var xx float64
	for _, t := range x {
		xx += t.value * t.value
	}

	best := 0
	bestDist := 0.0
	for i, c := range m.centroids {
		var dot float64
		for _, t := range x {
			dot += t.value * c[t.index]
		}
		d := xx - 2*dot + m.sqNorms[i]
		if i == 0 || d < bestDist {
			best, bestDist = i, d
		}
	}

	return intent.ClusterID(best)
}
