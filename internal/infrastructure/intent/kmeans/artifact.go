package kmeans

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ErrInvalidArtifact は学習済みモデルファイルの内容が不正な場合のエラー
var ErrInvalidArtifact = errors.New("invalid classifier artifact")

// Artifact はオフラインで学習したTF-IDFベクトライザとk-means重心の永続化形式
type Artifact struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"` // "l2" または "none"
	Centroids   [][]float64    `json:"centroids"`
}

// Load はファイルから学習済みモデルを読み込む
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse classifier artifact: %w", err)
	}

	return NewModel(a)
}

// validate はArtifactの整合性を検証
func (a *Artifact) validate() error {
	dim := len(a.IDF)
	if dim == 0 {
		return fmt.Errorf("%w: empty idf vector", ErrInvalidArtifact)
	}

	if len(a.Vocabulary) != dim {
		return fmt.Errorf("%w: vocabulary size %d does not match idf size %d", ErrInvalidArtifact, len(a.Vocabulary), dim)
	}

	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= dim {
			return fmt.Errorf("%w: term %q has out-of-range index %d", ErrInvalidArtifact, term, idx)
		}
	}

	if len(a.Centroids) == 0 {
		return fmt.Errorf("%w: no centroids", ErrInvalidArtifact)
	}

	for i, c := range a.Centroids {
		if len(c) != dim {
			return fmt.Errorf("%w: centroid %d has dimension %d, want %d", ErrInvalidArtifact, i, len(c), dim)
		}
	}

	if a.NgramRange[0] < 1 || a.NgramRange[1] < a.NgramRange[0] {
		return fmt.Errorf("%w: ngram_range %v", ErrInvalidArtifact, a.NgramRange)
	}

	switch a.Norm {
	case "l2", "none":
	default:
		return fmt.Errorf("%w: unsupported norm %q", ErrInvalidArtifact, a.Norm)
	}

	return nil
}

// applyDefaults はscikit-learnのTfidfVectorizer既定値で未指定項目を埋める
func (a *Artifact) applyDefaults() {
	if a.NgramRange == [2]int{} {
		a.NgramRange = [2]int{1, 1}
	}
	if a.Norm == "" {
		a.Norm = "l2"
	}
}
