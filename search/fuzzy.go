package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/goliatone/go-accounts/model"
)

// Tokenize lowercases s and splits it on anything that is not a letter or
// digit, so "john.doe@example.com" yields john, doe, example, com.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Terms returns the distinct tokens of every searchable field of doc.
func Terms(doc Document) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, field := range []string{doc.Name, doc.Email, doc.DepartmentName} {
		for _, tok := range Tokenize(field) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

// MaxEdits returns the edit budget for a query token: none for one or two
// characters, one up to five, two beyond that.
func MaxEdits(token string) int {
	n := len([]rune(token))
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// Score rates how well the query tokens match a set of document terms.
// Every query token contributes its best match; a document scores zero when
// no token matches at all.
func Score(query, terms []string) float64 {
	total := 0.0
	for _, q := range query {
		best := 0.0
		for _, term := range terms {
			if s := tokenScore(q, term); s > best {
				best = s
			}
		}
		total += best
	}
	return total
}

func tokenScore(q, term string) float64 {
	switch {
	case q == term:
		return 3
	case strings.HasPrefix(term, q):
		return 2
	case len(q) >= 3 && strings.Contains(term, q):
		return 1.5
	}

	budget := MaxEdits(q)
	if budget == 0 {
		return 0
	}
	if d := editDistance(q, term, budget); d <= budget {
		return 1 / float64(1+d)
	}
	return 0
}

// editDistance is the optimal string alignment distance between a and b,
// counting an adjacent transposition as one edit. It gives up early and
// returns limit+1 once every cell of a row exceeds limit.
func editDistance(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > limit {
		return limit + 1
	}

	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				cur[j] = min(cur[j], prev2[j-2]+1)
			}
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > limit {
			return limit + 1
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(rb)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Scored pairs a document with its relevance.
type Scored struct {
	Document Document
	Score    float64
}

// Rank scores docs against term, drops non-matches and returns the
// requested page ordered by score, then ID.
func Rank(docs []Document, term string, page, size int) model.Page[Document] {
	query := Tokenize(term)
	if len(query) == 0 {
		return model.EmptyPage[Document](page, size)
	}

	var hits []Scored
	for _, doc := range docs {
		if s := Score(query, Terms(doc)); s > 0 {
			hits = append(hits, Scored{Document: doc, Score: s})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})

	start := model.Offset(page, size)
	if start < 0 || start > len(hits) {
		start = len(hits)
	}
	end := len(hits)
	if size > 0 && size < end-start {
		end = start + size
	}

	content := make([]Document, 0, end-start)
	for _, h := range hits[start:end] {
		content = append(content, h.Document)
	}
	return model.NewPage(content, page, size, len(hits))
}

// Trigrams returns the padded character trigrams of every token, used by
// backends that prefilter candidates before ranking.
func Trigrams(tokens []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tokens {
		r := []rune("  " + tok + " ")
		for i := 0; i+3 <= len(r); i++ {
			g := string(r[i : i+3])
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}
