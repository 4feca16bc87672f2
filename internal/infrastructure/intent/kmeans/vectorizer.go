package kmeans

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// tokenPattern は2文字以上の単語を抽出する（Unicode対応の \b\w\w+\b 相当）
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// term は疎ベクトルの1要素
type term struct {
	index int
	value float64
}

// vectorizer は学習済み語彙とIDFによるTF-IDF変換
type vectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	ngramMin    int
	ngramMax    int
	sublinearTF bool
	l2          bool
}

// tokenize はテキストを正規化・小文字化して単語に分割
func tokenize(text string) []string {
	normalized := strings.ToLower(norm.NFC.String(text))
	return tokenPattern.FindAllString(normalized, -1)
}

// ngrams は語のn-gramを空白区切りで生成
func (v *vectorizer) ngrams(tokens []string) []string {
	if v.ngramMax == 1 {
		return tokens
	}

	var out []string
	for n := v.ngramMin; n <= v.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// transform はテキストをインデックス昇順の疎TF-IDFベクトルに変換
//
// 語彙に含まれる語が1つもない場合（空文字列を含む）はゼロベクトル（空スライス）を返す。
func (v *vectorizer) transform(text string) []term {
	counts := make(map[int]float64)
	for _, gram := range v.ngrams(tokenize(text)) {
		if idx, ok := v.vocabulary[gram]; ok {
			counts[idx]++
		}
	}

	terms := make([]term, 0, len(counts))
	for idx, tf := range counts {
		if v.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		terms = append(terms, term{index: idx, value: tf * v.idf[idx]})
	}

	// 浮動小数点の加算順を固定して推論を決定的にする
	sort.Slice(terms, func(i, j int) bool { return terms[i].index < terms[j].index })

	if v.l2 {
		var sum float64
		for _, t := range terms {
			sum += t.value * t.value
		}
		if sum > 0 {
			n := math.Sqrt(sum)
			for i := range terms {
				terms[i].value /= n
			}
		}
	}

	return terms
}
