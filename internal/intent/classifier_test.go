package intent

import (
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

func shopVocabulary() models.Vocabulary {
	return models.Vocabulary{
		"Coffee": {
			"Milk Coffee":  {"Cà phê sữa đá", "Bạc Xỉu"},
			"Black Coffee": {"Cà phê đen đá", "Americano"},
		},
		"Tea": {
			"Fruit Tea": {"Trà đào cam sả", "Trà vải"},
			"Matcha":    {"Matcha Latte"},
		},
		"Cake": {
			"": {"Mousse Matcha", "Tiramisu"},
		},
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Cà phê sữa đá":   "ca phe sua da",
		"  BẠC XỈU  ":     "bac xiu",
		"Trà Đào Cam Sả":  "tra dao cam sa",
		"ca phe sua da":   "ca phe sua da",
		"":                "",
		"Matcha\tLatte\n": "matcha\tlatte",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
	assert.Equal(t, Normalize("Cà phê sữa đá"), Normalize("ca phe sua da"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	idempotent := func(s string) bool {
		once := Normalize(s)
		return Normalize(once) == once
	}

	properties.Property("latin text", prop.ForAll(idempotent,
		gen.UnicodeString(unicode.Latin),
	))
	properties.Property("vietnamese phrases", prop.ForAll(idempotent,
		gen.SliceOf(gen.OneConstOf("Cà", "phê", "SỮA", "đá", "Trà", "đào", " ", "Bạc", "Xỉu", "ạ", "\t")).
			Map(func(parts []string) string {
				out := ""
				for _, p := range parts {
					out += p
				}
				return out
			}),
	))
	properties.Property("any string", prop.ForAll(idempotent, gen.AnyString()))

	properties.TestingRun(t)
}

func TestClassifyScenario(t *testing.T) {
	c := NewClassifier(models.Vocabulary{"Coffee": {"Milk Coffee": {"Cà phê sữa đá"}}})

	got := c.Classify("cho tôi cà phê sữa đá")
	assert.Equal(t, Classification{Kind: KindItem, Keyword: "Cà phê sữa đá"}, got)
}

func TestClassify(t *testing.T) {
	c := NewClassifier(shopVocabulary())

	cases := []struct {
		query string
		want  Classification
	}{
		{"ca phe sua da nhe", Classification{KindItem, "Cà phê sữa đá"}},
		{"bac xiu ít ngọt", Classification{KindItem, "Bạc Xỉu"}},
		{"cho mình xem matcha", Classification{KindSubCategory, "Matcha"}},
		{"có milk coffee không", Classification{KindSubCategory, "Milk Coffee"}},
		{"menu coffee", Classification{KindMainCategory, "Coffee"}},
		{"CAKE ngon", Classification{KindMainCategory, "Cake"}},
		{"trà sữa trân châu", Classification{Kind: KindUnknown}},
		{"", Classification{Kind: KindUnknown}},
		{"   ", Classification{Kind: KindUnknown}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Classify(tc.query), "query %q", tc.query)
	}
}

func TestClassifyCategoriesNeedWholeWords(t *testing.T) {
	c := NewClassifier(models.Vocabulary{"Tea": {"Matcha": {"Matcha Latte"}}})

	assert.Equal(t, KindUnknown, c.Classify("teapot").Kind)
	assert.Equal(t, KindUnknown, c.Classify("matchabox").Kind)
	assert.Equal(t, Classification{KindMainCategory, "Tea"}, c.Classify("iced tea please"))
	assert.Equal(t, Classification{KindSubCategory, "Matcha"}, c.Classify("matcha, please"))
}

func TestClassifyItemSubstring(t *testing.T) {
	c := NewClassifier(models.Vocabulary{"Tea": {"Fruit Tea": {"Trà vải"}}})

	// Items tolerate compound phrases.
	assert.Equal(t, Classification{KindItem, "Trà vải"}, c.Classify("trà vảithiều"))
}

func TestClassifyPrefersLongestItem(t *testing.T) {
	c := NewClassifier(models.Vocabulary{
		"Tea": {"Fruit Tea": {"Trà", "Trà đào cam sả"}},
	})

	assert.Equal(t, Classification{KindItem, "Trà đào cam sả"}, c.Classify("một ly trà đào cam sả"))
	assert.Equal(t, Classification{KindItem, "Trà"}, c.Classify("một ly trà"))
}

func TestClassifyPriorityProperty(t *testing.T) {
	vocab := shopVocabulary()
	c := NewClassifier(vocab)

	var items, categories []any
	for main, subs := range vocab {
		categories = append(categories, main)
		for sub, titles := range subs {
			if sub != "" {
				categories = append(categories, sub)
			}
			for _, title := range titles {
				items = append(items, title)
			}
		}
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("an item in the query always wins over categories", prop.ForAll(
		func(item, category string, itemFirst bool) bool {
			query := "cho tôi " + category + " và " + item
			if itemFirst {
				query = item + " hoặc " + category
			}
			return c.Classify(query).Kind == KindItem
		},
		gen.OneConstOf(items...),
		gen.OneConstOf(categories...),
		gen.Bool(),
	))

	properties.Property("a sub category wins over its main category", prop.ForAll(
		func(sub string) bool {
			return c.Classify("coffee tea cake "+sub).Kind == KindSubCategory
		},
		gen.OneConstOf("Milk Coffee", "Black Coffee", "Fruit Tea", "Matcha"),
	))

	properties.TestingRun(t)
}

func TestNewClassifierSkipsEmptyNames(t *testing.T) {
	c := NewClassifier(models.Vocabulary{
		"": {"": {"", "  "}},
	})

	assert.Empty(t, c.items)
	assert.Empty(t, c.subs)
	assert.Empty(t, c.mains)
	assert.Equal(t, KindUnknown, c.Classify("anything").Kind)
}
