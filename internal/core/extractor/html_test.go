package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	page := "https://example.com/recipes/soup.html"
	tests := []struct {
		image string
		want  string
	}{
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"http://cdn.example.com/a.jpg", "http://cdn.example.com/a.jpg"},
		{"//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"/img/a.jpg", "https://example.com/img/a.jpg"},
		{"img/a.jpg", "https://example.com/recipes/img/a.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(tt.image, page), tt.image)
	}

	assert.Equal(t, "https://example.com/a.jpg", ResolveURL("a.jpg", "https://example.com"))
	assert.Equal(t, "a.jpg", ResolveURL("a.jpg", "not a url"))
}

func TestFindImageURLPrefersOpenGraph(t *testing.T) {
	markup := `<html><head>
		<meta content="/og.jpg" property="og:image">
	</head><body><img src="/first.jpg"></body></html>`

	assert.Equal(t, "https://example.com/og.jpg", FindImageURL(markup, "https://example.com/r/1"))
}

func TestFindImageURLFallsBackToFirstImage(t *testing.T) {
	markup := `<body><p>text</p><img alt="x" src="photos/a.png"><img src="/b.png"></body>`

	assert.Equal(t, "https://example.com/r/photos/a.png", FindImageURL(markup, "https://example.com/r/1"))
}

func TestFindImageURLIgnoresDataURIs(t *testing.T) {
	assert.Empty(t, FindImageURL(`<img src="data:image/png;base64,AAAA">`, "https://example.com/"))
	assert.Empty(t, FindImageURL(`<p>no images</p>`, "https://example.com/"))
}

func TestCleanTextStripsMarkup(t *testing.T) {
	markup := `<html><head><style>body { color: red; }</style>
		<script>var x = "<b>not text</b>";</script></head>
		<body><h1>Tomato   Soup</h1><p>Serves&nbsp;4 &amp; more</p></body></html>`

	got := CleanText(markup)

	assert.Equal(t, "Tomato Soup Serves 4 & more", got)
	assert.NotContains(t, got, "color")
	assert.NotContains(t, got, "not text")
}

func TestCleanTextTruncates(t *testing.T) {
	got := CleanText("<p>" + strings.Repeat("a", MaxContentLength+500) + "</p>")
	assert.Len(t, []rune(got), MaxContentLength)
}

func TestSectionHints(t *testing.T) {
	markup := `<h2>Ingredients</h2><p>For the sauce: tomatoes, garlic.</p>
		<p>FOR THE DOUGH: flour</p><h3>For the Sauce</h3><h2>ingredients</h2>`

	assert.Equal(t, []string{"Ingredients", "For the Sauce", "For the DOUGH"}, SectionHints(markup))
}

func TestSectionHintsLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("<h2>Section ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString("</h2>")
	}
	assert.Len(t, SectionHints(b.String()), maxSectionHints)
}
