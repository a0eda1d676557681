// Package intent maps free-text menu queries onto the catalog vocabulary.
package intent

import (
	"sort"
	"strings"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

type Kind string

const (
	KindItem         Kind = "item"
	KindSubCategory  Kind = "sub_category"
	KindMainCategory Kind = "main_category"
	KindUnknown      Kind = "unknown"
)

// Classification is the typed result of Classify. Keyword holds the original,
// non-normalized vocabulary name and is empty for KindUnknown.
type Classification struct {
	Kind    Kind
	Keyword string
}

type entry struct {
	normalized string
	original   string
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	items []entry
	subs  []entry
	mains []entry
}

// NewClassifier indexes the vocabulary by normalized name. Empty names are
// skipped; when two names normalize identically the first one seen is kept.
func NewClassifier(vocab models.Vocabulary) *Classifier {
	items := make(map[string]string)
	subs := make(map[string]string)
	mains := make(map[string]string)

	for _, main := range sortedKeys(vocab) {
		add(mains, main)
		for _, sub := range sortedKeys(vocab[main]) {
			add(subs, sub)
			for _, title := range vocab[main][sub] {
				add(items, title)
			}
		}
	}

	return &Classifier{
		items: ordered(items),
		subs:  ordered(subs),
		mains: ordered(mains),
	}
}

// Classify applies item, then sub category, then main category matching and
// returns the first hit. Items match as substrings of the query; categories
// must match whole words.
func (c *Classifier) Classify(query string) Classification {
	q := Normalize(query)
	if q == "" {
		return Classification{Kind: KindUnknown}
	}

	for _, e := range c.items {
		if strings.Contains(q, e.normalized) {
			return Classification{Kind: KindItem, Keyword: e.original}
		}
	}
	for _, e := range c.subs {
		if containsWord(q, e.normalized) {
			return Classification{Kind: KindSubCategory, Keyword: e.original}
		}
	}
	for _, e := range c.mains {
		if containsWord(q, e.normalized) {
			return Classification{Kind: KindMainCategory, Keyword: e.original}
		}
	}
	return Classification{Kind: KindUnknown}
}

func add(set map[string]string, name string) {
	n := Normalize(name)
	if n == "" {
		return
	}
	if _, ok := set[n]; !ok {
		set[n] = strings.TrimSpace(name)
	}
}

// ordered puts longer names first so "tra dao cam sa" wins over "tra".
func ordered(set map[string]string) []entry {
	out := make([]entry, 0, len(set))
	for n, orig := range set {
		out = append(out, entry{normalized: n, original: orig})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].normalized) != len(out[j].normalized) {
			return len(out[i].normalized) > len(out[j].normalized)
		}
		return out[i].normalized < out[j].normalized
	})
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
