// Package htmltext provides small helpers over golang.org/x/net/html for
// selecting nodes by class and turning documents into readable text.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr は属性値を返す（存在しなければ空文字とfalse）
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass はclass属性にトークンclassが含まれるかを返す
// "result__a" は "result" にマッチしない
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// FindAll はpredにマッチする要素を文書順で返す
// マッチした要素の子孫も探索する
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// FindFirst はroot配下（root自身を除く）でpredにマッチする最初の要素を返す
func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			return c
		}
		if found := FindFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// ByClass はclassトークンで要素を選ぶ述語を返す
func ByClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return HasClass(n, class) }
}

// ByTag はタグ名で要素を選ぶ述語を返す
func ByTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// Text はn配下のテキストノードをトリムしてsepで連結する
// 空のテキストノードは捨てる
func Text(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := collapseSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

// Title は<title>の内容を返す
func Title(doc *html.Node) string {
	t := FindFirst(doc, ByTag("title"))
	if t == nil {
		return ""
	}
	return Text(t, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
