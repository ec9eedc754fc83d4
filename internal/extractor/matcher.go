package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Matcher finds candidate text fragments in a parsed document.
// Matchers are stateless and safe for concurrent use.
type Matcher struct {
	Name string
	Find func(doc *goquery.Document) []string
}

// CSSMatcher returns the normalized, non-empty text of every element matching selector.
func CSSMatcher(selector string) Matcher {
	return Matcher{
		Name: selector,
		Find: func(doc *goquery.Document) []string {
			var values []string
			doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
				if val := Normalize(sel.Text()); val != "" {
					values = append(values, val)
				}
			})
			return values
		},
	}
}

// XPathMatcher evaluates expr against the document's underlying node tree.
// An invalid expression matches nothing.
func XPathMatcher(expr string) Matcher {
	return Matcher{
		Name: "xpath:" + expr,
		Find: func(doc *goquery.Document) []string {
			if len(doc.Nodes) == 0 {
				return nil
			}
			nodes, err := htmlquery.QueryAll(doc.Nodes[0], expr)
			if err != nil {
				return nil
			}
			var values []string
			for _, node := range nodes {
				if val := Normalize(htmlquery.InnerText(node)); val != "" {
					values = append(values, val)
				}
			}
			return values
		},
	}
}

// DefaultTitleMatchers are tried in order; the first non-empty match is the title.
func DefaultTitleMatchers() []Matcher {
	return []Matcher{
		CSSMatcher("h1"),
		CSSMatcher(".headline"),
		CSSMatcher(".title"),
		XPathMatcher(`//*[@data-testid="headline"]`),
	}
}

// DefaultBodyMatchers are tried in order; the first one yielding any paragraph
// text supplies the body.
func DefaultBodyMatchers() []Matcher {
	return []Matcher{
		CSSMatcher(".story-body p"),
		CSSMatcher(".article-body p"),
		CSSMatcher(".content p"),
		CSSMatcher(`[data-testid="text-block"] p`),
		CSSMatcher(".post-content p"),
	}
}

// Normalize collapses whitespace runs to single spaces and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
