package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultLocalDim はLocalEmbedderのデフォルト次元
const DefaultLocalDim = 256

// LocalEmbedder はネットワーク不要のfeature hashing実装
// 単語とその連続ペア、CJK文字のbigramをハッシュして固定次元に落とし、L2正規化する
type LocalEmbedder struct {
	dim int
}

// NewLocalEmbedder は新しいLocalEmbedderを作成（dimが0以下ならデフォルト）
func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = DefaultLocalDim
	}
	return &LocalEmbedder{dim: dim}
}

// Embed はテキストを埋め込みベクトルに変換
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	features := Features(text)
	if len(features) == 0 {
		return nil, ErrEmptyEmbedding
	}

	vec := make([]float64, e.dim)
	for _, f := range features {
		h := fnv.New64a()
		_, _ = h.Write([]byte(f))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		// 上位ビットで符号を決めて衝突の偏りを打ち消す
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dim)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// GetDimension は次元を返す
func (e *LocalEmbedder) GetDimension() int {
	return e.dim
}

// Features はテキストからハッシュ対象の特徴量を抽出する
func Features(text string) []string {
	words := tokenize(strings.ToLower(text))
	features := make([]string, 0, len(words)*2)
	for i, w := range words {
		features = append(features, w)
		if i > 0 {
			features = append(features, words[i-1]+" "+w)
		}
	}
	return features
}

// tokenize は英数字の連続を1語、CJK文字はbigram（1文字のみならunigram）として分割する
func tokenize(s string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	flushCJK := func() {
		switch {
		case len(cjk) == 1:
			tokens = append(tokens, string(cjk))
		case len(cjk) > 1:
			for i := 0; i+1 < len(cjk); i++ {
				tokens = append(tokens, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range s {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
