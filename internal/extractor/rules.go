package extractor

import "github.com/PuerkitoBio/goquery"

const (
	alwaysRemovedSelector = "script, style, noscript, template, iframe, svg"
	chromeSelector        = "nav, header, footer, aside, .ads, .advertisement, .comments, #comments"
	blockSelector         = "p, div, section, article, main, nav, header, footer, aside, " +
		"ul, ol, li, table, tr, figure, figcaption, form, " +
		"h1, h2, h3, h4, h5, h6, blockquote, pre, dt, dd"

	bodyRuleName = "body"
)

// contentRule finds a candidate content region. A rule matches when find
// returns a non-empty selection.
type contentRule struct {
	name string
	find func(doc *goquery.Document) *goquery.Selection
}

func selectorRule(selector string) contentRule {
	return contentRule{
		name: selector,
		find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(selector)
		},
	}
}

// contentRules are evaluated in order, the first match wins.
var contentRules = []contentRule{ //nolint:gochecknoglobals // Fixed priority list.
	selectorRule("article"),
	selectorRule(`[role="main"]`),
	selectorRule(".article-content"),
	selectorRule(".post-content"),
	selectorRule(".entry-content"),
	selectorRule("main"),
	selectorRule("#content"),
	selectorRule(".content"),
}

// mainText returns the normalized text of the first matching rule, falling
// back to the body when nothing matches or the winner has no text.
func mainText(doc *goquery.Document) (string, string) {
	for _, rule := range contentRules {
		found := rule.find(doc)
		if found.Length() == 0 {
			continue
		}

		if text := Normalize(found.Text()); text != "" {
			return text, rule.name
		}

		break
	}

	return Normalize(doc.Find("body").Text()), bodyRuleName
}
