package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var ugcPolicy = bluemonday.UGCPolicy()

// SanitizeHTML strips scripts, handlers and other unsafe markup from
// third-party job descriptions.
func SanitizeHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

// HTMLToText returns the visible text of an HTML fragment, one text run per
// line. Input without markup is returned trimmed.
func HTMLToText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return selectionText(doc.Selection)
}

func selectionText(sel *goquery.Selection) string {
	var lines []string
	for _, n := range sel.Nodes {
		collectText(n, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, lines *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*lines = append(*lines, t)
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

func parseDocument(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(string(body)))
}

func firstText(doc *goquery.Selection, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func firstAttr(doc *goquery.Selection, selector, attr string) string {
	v, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

func outerHTML(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	h, err := goquery.OuterHtml(sel.First())
	if err != nil {
		return ""
	}
	return h
}

// absoluteURL resolves href against base. Empty and fragment links yield "".
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// lastPathSegment returns the final non-empty path element of a URL.
func lastPathSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	return parts[len(parts)-1]
}

func pickNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
