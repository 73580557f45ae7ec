package htmltext

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements は本文抽出時に子孫ごと捨てる要素
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"canvas":   true,
	"template": true,
	"object":   true,
	"embed":    true,
	"nav":      true,
	"footer":   true,
	"form":     true,
	"button":   true,
	"select":   true,
}

// blockElements は前後に段落区切りを入れる要素
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "aside": true, "blockquote": true, "figure": true,
	"figcaption": true, "table": true, "tr": true, "ul": true, "ol": true,
	"dl": true, "dt": true, "dd": true, "hr": true, "address": true,
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

// Document はHTMLから抽出した本文
type Document struct {
	Title   string
	Content string
}

// Extract はHTMLをパースしてタイトルとMarkdown風の本文を返す
func Extract(r io.Reader) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		Title:   Title(doc),
		Content: ToMarkdown(doc),
	}, nil
}

// ToMarkdown はノード配下をMarkdown風テキストに変換する
// 見出しは "#"、リスト項目は "- "、<pre>はフェンスで囲む
func ToMarkdown(root *html.Node) string {
	w := &mdWriter{}
	body := FindFirst(root, ByTag("body"))
	if body == nil {
		body = root
	}
	w.walk(body)
	return strings.TrimSpace(w.b.String())
}

type mdWriter struct {
	b            strings.Builder
	trailingNL   int // 末尾の連続改行数
	pendingSpace bool
	noSpace      bool // 直前がリスト記号などで空白を挟まない
}

func (w *mdWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		// 下で処理
	case html.DocumentNode:
		w.children(n)
		return
	default:
		return
	}

	tag := n.Data
	if skippedElements[tag] {
		return
	}
	if _, hidden := Attr(n, "hidden"); hidden {
		return
	}

	switch {
	case headingLevels[tag] > 0:
		w.paragraph()
		w.raw(strings.Repeat("#", headingLevels[tag]) + " ")
		w.children(n)
		w.paragraph()
	case tag == "li":
		w.newline()
		w.raw("- ")
		w.children(n)
		w.newline()
	case tag == "br":
		w.newline()
	case tag == "pre":
		w.paragraph()
		w.raw("```\n" + strings.Trim(rawText(n), "\n") + "\n```")
		w.paragraph()
	case tag == "td" || tag == "th":
		w.space()
		w.children(n)
		w.space()
	case blockElements[tag]:
		w.paragraph()
		w.children(n)
		w.paragraph()
	default:
		w.children(n)
	}
}

func (w *mdWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *mdWriter) text(s string) {
	if s == "" {
		return
	}
	if isSpace(s[0]) {
		w.pendingSpace = true
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return
	}
	if w.pendingSpace && w.b.Len() > 0 && w.trailingNL == 0 && !w.noSpace {
		w.b.WriteByte(' ')
	}
	w.b.WriteString(strings.Join(fields, " "))
	w.trailingNL = 0
	w.noSpace = false
	w.pendingSpace = isSpace(s[len(s)-1])
}

func (w *mdWriter) raw(s string) {
	if s == "" {
		return
	}
	w.b.WriteString(s)
	w.pendingSpace = false
	w.noSpace = true
	w.trailingNL = len(s) - len(strings.TrimRight(s, "\n"))
}

func (w *mdWriter) space() {
	w.pendingSpace = true
}

func (w *mdWriter) newline() {
	w.pendingSpace = false
	if w.b.Len() == 0 || w.trailingNL >= 1 {
		return
	}
	w.b.WriteByte('\n')
	w.trailingNL = 1
}

func (w *mdWriter) paragraph() {
	w.pendingSpace = false
	if w.b.Len() == 0 {
		return
	}
	for w.trailingNL < 2 {
		w.b.WriteByte('\n')
		w.trailingNL++
	}
}

// rawText は<pre>用に空白を保ったままテキストを集める
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
