package repository

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ramavio/paperchat/internal/domain"
)

// Fallback strings mirroring what the archive UI shows for missing fields.
const (
	noCitation = "No citation available"
	noAbstract = "No abstract available"
	noCode     = "No code available"
	noTitle    = "No title available"
)

var citationStyleRe = regexp.MustCompile(`margin-bottom:\s*1em`)

// parseSearchResults extracts result-row links from a simple-search listing
// page. Each <tr class="ep_search_result"> contributes its first hyperlink,
// resolved against base. Order is preserved; the list is truncated to max.
func parseSearchResults(doc *html.Node, base *url.URL, max int) []domain.ResultStub {
	var stubs []domain.ResultStub
	for _, row := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "tr" && hasClass(n, "ep_search_result")
	}) {
		if len(stubs) >= max {
			break
		}
		link := findFirst(row, func(n *html.Node) bool {
			return n.Data == "a" && attr(n, "href") != ""
		})
		if link == nil {
			continue
		}
		ref, err := url.Parse(attr(link, "href"))
		if err != nil {
			continue
		}
		stubs = append(stubs, domain.ResultStub{Link: base.ResolveReference(ref).String()})
	}
	return stubs
}

// parsePaperMeta extracts the search-result metadata triple from a detail page.
func parsePaperMeta(doc *html.Node) domain.Paper {
	return domain.Paper{
		Citation: extractCitation(doc),
		Abstract: extractAbstract(doc),
		Code:     extractEprintID(doc),
	}
}

// parsePaperDetail extracts the full record used by the paper-detail and
// bookmark flows, including the split-PDF download links the archive exposes
// via DC.identifier meta tags.
func parsePaperDetail(doc *html.Node) domain.PaperDetail {
	detail := domain.PaperDetail{
		Title:    noTitle,
		Citation: extractCitation(doc),
		Abstract: extractAbstract(doc),
	}

	if h1 := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "h1" && hasClass(n, "ep_tm_pagetitle")
	}); h1 != nil {
		detail.Title = text(h1)
	}

	for _, meta := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "name") == "DC.identifier"
	}) {
		content := attr(meta, "content")
		switch {
		case strings.Contains(content, "BAB-I_IV-atau-V_DAFTAR-PUSTAKA.pdf"):
			detail.PreviewLink = content
		case strings.Contains(content, "BAB-II_sampai_SEBELUM-BAB-TERAKHIR.pdf"):
			detail.FullTextLink = content
		}
	}

	return detail
}

// extractCitation finds the first paragraph styled with the citation margin
// heuristic the archive template uses.
func extractCitation(doc *html.Node) string {
	p := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "p" && citationStyleRe.MatchString(attr(n, "style"))
	})
	if p == nil {
		return noCitation
	}
	return text(p)
}

// extractAbstract finds the first paragraph following an "Abstract" heading,
// case-insensitive, in document order.
func extractAbstract(doc *html.Node) string {
	seenHeading := false
	p := findFirst(doc, func(n *html.Node) bool {
		if n.Data == "h2" && strings.Contains(strings.ToLower(text(n)), "abstract") {
			seenHeading = true
			return false
		}
		return seenHeading && n.Data == "p"
	})
	if p == nil {
		return noAbstract
	}
	return text(p)
}

// extractEprintID reads the archive's numeric identifier meta tag.
func extractEprintID(doc *html.Node) string {
	meta := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "name") == "eprints.eprintid"
	})
	if meta == nil {
		return noCode
	}
	if content := strings.TrimSpace(attr(meta, "content")); content != "" {
		return content
	}
	return noCode
}

// findAll returns all element nodes matching the predicate, in document order.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// findFirst returns the first element node matching the predicate, in
// document order, or nil.
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && match(n) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether the node's class list contains name.
func hasClass(n *html.Node, name string) bool {
	for _, cls := range strings.Fields(attr(n, "class")) {
		if cls == name {
			return true
		}
	}
	return false
}

// text returns the node's concatenated text content, whitespace-collapsed.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
