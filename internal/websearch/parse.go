package websearch

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/brbranch/websearch_mcp/internal/htmltext"
)

// ddgBase は相対リンクの解決先（HTML版の相対リンクはすべてDuckDuckGo内部）
var ddgBase = &url.URL{Scheme: "https", Host: "duckduckgo.com", Path: "/"}

// ParseResults はDuckDuckGo HTML版のレスポンスから最大limit件の結果を抽出する
func ParseResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	results := []Result{}
	for _, node := range htmltext.FindAll(doc, htmltext.ByClass("result")) {
		link := htmltext.FindFirst(node, htmltext.ByClass("result__a"))
		if link == nil {
			continue
		}
		href, ok := htmltext.Attr(link, "href")
		if !ok || href == "" {
			continue
		}

		target, ok := ResolveURL(href)
		if !ok {
			continue
		}

		snippet := ""
		if s := htmltext.FindFirst(node, htmltext.ByClass("result__snippet")); s != nil {
			snippet = htmltext.Text(s, " ")
		}

		results = append(results, Result{
			Title:   htmltext.Text(link, " "),
			URL:     target,
			Snippet: snippet,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// ResolveURL は結果リンクのhrefを遷移先URLに変換する
//   - "//" で始まる場合は https を補う
//   - duckduckgo.com の /l/ リダイレクトは uddg パラメータを取り出す
//   - それ以外で duckduckgo.com を指すもの（広告 /y.js など）は false
//   - リダイレクト先を含め http/https 以外は false
func ResolveURL(href string) (string, bool) {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		u = ddgBase.ResolveReference(u)
	}

	if isDuckDuckGoHost(u.Hostname()) {
		if !strings.HasPrefix(u.Path, "/l/") {
			return "", false
		}
		uddg := u.Query().Get("uddg")
		if uddg == "" {
			return "", false
		}
		target, err := url.Parse(uddg)
		if err != nil || !isWebURL(target) || isDuckDuckGoHost(target.Hostname()) {
			return "", false
		}
		return target.String(), true
	}

	if !isWebURL(u) {
		return "", false
	}
	return u.String(), true
}

// isWebURL はhttp/httpsの絶対URLかを返す
func isWebURL(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isDuckDuckGoHost(host string) bool {
	host = strings.ToLower(host)
	return host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")
}
