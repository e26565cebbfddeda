package tool

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToMarkdown renders parsed HTML as plain text with light markdown-like
// structure: headings get a leading "#"-style marker, paragraphs are
// separated by blank lines, and anchor text keeps its href alongside it so
// the model can still follow links in fetched pages.
func htmlToMarkdown(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			case "br":
				b.WriteString("\n")
				return
			case "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n\n")
				b.WriteString(strings.Repeat("#", int(n.Data[1]-'0')))
				b.WriteString(" ")
				writeChildren(&b, n, walk)
				b.WriteString("\n")
				return
			case "p", "div", "li", "tr":
				b.WriteString("\n")
				writeChildren(&b, n, walk)
				b.WriteString("\n")
				return
			case "a":
				href := attrValue(n, "href")
				text := strings.TrimSpace(collectText(n))
				if href != "" && text != "" {
					b.WriteString("[" + text + "](" + href + ")")
				} else {
					b.WriteString(text)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
			return
		}
		writeChildren(&b, n, walk)
	}
	walk(doc)

	return collapseBlankLines(b.String())
}

func writeChildren(b *strings.Builder, n *html.Node, walk func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
}

func collectText(n *html.Node) string {
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

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
