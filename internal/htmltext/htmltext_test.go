package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

// TestHasClass はclassトークン単位で判定することをテスト
func TestHasClass(t *testing.T) {
	doc := parse(t, `<div class="result results_links"><a class="result__a">x</a></div>`)

	results := FindAll(doc, ByClass("result"))
	require.Len(t, results, 1)
	assert.Equal(t, "div", results[0].Data)

	link := FindFirst(results[0], ByClass("result__a"))
	require.NotNil(t, link)
	assert.Equal(t, "a", link.Data)
	assert.False(t, HasClass(link, "result"))
}

func TestText(t *testing.T) {
	doc := parse(t, `<p id="s">  Go   is <b>fast</b>
	and <i>simple</i> </p>`)
	p := FindFirst(doc, ByTag("p"))
	require.NotNil(t, p)

	assert.Equal(t, "Go is fast and simple", Text(p, " "))
	assert.Equal(t, "Go isfastandsimple", Text(p, ""))
}

func TestAttr(t *testing.T) {
	doc := parse(t, `<a href="https://example.com" data-x="1">x</a>`)
	a := FindFirst(doc, ByTag("a"))
	require.NotNil(t, a)

	v, ok := Attr(a, "href")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", v)

	_, ok = Attr(a, "title")
	assert.False(t, ok)
}

// TestExtract は本文抽出でノイズ要素が除去されることをテスト
func TestExtract(t *testing.T) {
	src := `<html><head><title> Example  Page </title><script>var x = 1;</script></head>
<body><nav>menu</nav><h1>Hello</h1><p>First  <b>bold</b> para.</p>
<ul><li>one</li><li> two </li></ul><pre>a
  b</pre><footer>copyright</footer></body></html>`

	doc, err := Extract(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Example Page", doc.Title)
	assert.Equal(t, "# Hello\n\nFirst bold para.\n\n- one\n- two\n\n```\na\n  b\n```", doc.Content)
}

func TestToMarkdown_SkipsHiddenAndStyles(t *testing.T) {
	doc := parse(t, `<body><style>p{}</style><div hidden>secret</div><div>visible<br>next</div></body>`)

	assert.Equal(t, "visible\nnext", ToMarkdown(doc))
}

func TestToMarkdown_Headings(t *testing.T) {
	doc := parse(t, `<body><h2>Install</h2><p>Run it.</p><h3>Notes</h3></body>`)

	assert.Equal(t, "## Install\n\nRun it.\n\n### Notes", ToMarkdown(doc))
}

func TestTitle_Missing(t *testing.T) {
	assert.Equal(t, "", Title(parse(t, `<p>no title</p>`)))
}
