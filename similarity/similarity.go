// Package similarity ranks collected thesis titles by TF-IDF cosine
// similarity against a proposed title.
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-perpus/models"
)

// DefaultTop is the number of matches returned when none is requested.
const DefaultTop = 10

// Band buckets a similarity score.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandOf buckets a percentage score: high from 70, medium from 40.
func BandOf(score float64) Band {
	switch {
	case score >= 70:
		return BandHigh
	case score >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// Match is one ranked corpus entry.
type Match struct {
	Record *models.Record
	// Score is the cosine similarity as a percentage.
	Score    float64
	Matching []string
	Band     Band
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Preprocess lower-cases text, turns punctuation into spaces and drops stopwords.
func Preprocess(text string, stopwords map[string]struct{}) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	words := fields[:0]
	for _, w := range fields {
		if _, stop := stopwords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// TF returns relative term frequencies.
func TF(words []string) map[string]float64 {
	tf := make(map[string]float64, len(words))
	if len(words) == 0 {
		return tf
	}
	for _, w := range words {
		tf[w]++
	}
	total := float64(len(words))
	for w := range tf {
		tf[w] /= total
	}
	return tf
}

// IDF returns ln(N/df) for every term of docs.
func IDF(docs [][]string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, w := range doc {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			df[w]++
		}
	}
	idf := make(map[string]float64, len(df))
	n := float64(len(docs))
	for w, count := range df {
		idf[w] = math.Log(n / float64(count))
	}
	return idf
}

// TFIDF weights tf by idf. Terms unknown to idf weigh zero.
func TFIDF(tf, idf map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(tf))
	for w, f := range tf {
		out[w] = f * idf[w]
	}
	return out
}

// Cosine returns the cosine similarity of two sparse vectors, 0 when either is zero.
func Cosine(a, b map[string]float64) float64 {
	var dot, magA, magB float64
	for w, va := range a {
		magA += va * va
		dot += va * b[w]
	}
	for _, vb := range b {
		magB += vb * vb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// MatchingWords lists the distinct input words present in compared, in input order.
func MatchingWords(input, compared []string) []string {
	in := make(map[string]struct{}, len(compared))
	for _, w := range compared {
		in[w] = struct{}{}
	}
	var out []string
	emitted := make(map[string]struct{})
	for _, w := range input {
		if _, ok := in[w]; !ok {
			continue
		}
		if _, dup := emitted[w]; dup {
			continue
		}
		emitted[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Rank scores every titled record in corpus against title and returns the
// top n, best first. Ties keep corpus order. n <= 0 means DefaultTop.
func Rank(title string, corpus []*models.Record, stopwords map[string]struct{}, n int) []Match {
	if n <= 0 {
		n = DefaultTop
	}

	input := Preprocess(title, stopwords)
	records := make([]*models.Record, 0, len(corpus))
	docs := [][]string{input}
	for _, r := range corpus {
		if r == nil || strings.TrimSpace(r.Title) == "" {
			continue
		}
		records = append(records, r)
		docs = append(docs, Preprocess(r.Title, stopwords))
	}

	idf := IDF(docs)
	inputVec := TFIDF(TF(input), idf)

	matches := make([]Match, 0, len(records))
	for i, r := range records {
		words := docs[i+1]
		score := Cosine(inputVec, TFIDF(TF(words), idf)) * 100
		matches = append(matches, Match{
			Record:   r,
			Score:    score,
			Matching: MatchingWords(input, words),
			Band:     BandOf(score),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

var driveFileID = regexp.MustCompile(`/d/([^/]+)`)

// PreviewURL turns a shared Drive file link into its embeddable preview
// link. Other links come back unchanged.
func PreviewURL(link string) string {
	m := driveFileID.FindStringSubmatch(link)
	if m == nil {
		return link
	}
	return "https://drive.google.com/file/d/" + m[1] + "/preview"
}
