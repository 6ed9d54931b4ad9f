package markdown

import (
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToWhatsApp converts model-generated markdown to WhatsApp text formatting
// (*bold*, _italic_, ~strike~, ```monospace```).
func ToWhatsApp(markdown string) string {
	if markdown == "" {
		return ""
	}

	rendered := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return cleanHTMLForWhatsApp(rendered)
}

var (
	paragraphRe = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	headingRe   = regexp.MustCompile(`(?s)<h[1-6]>(.*?)</h[1-6]>`)
	codeBlockRe = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	inlineRe    = regexp.MustCompile(`(?s)<code>(.*?)</code>`)
	anchorRe    = regexp.MustCompile(`<a href="([^"]*)"[^>]*>(.*?)</a>`)
	tagRe       = regexp.MustCompile(`</?[a-zA-Z]+(?:\s[^>]*)?>`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

func cleanHTMLForWhatsApp(s string) string {
	s = codeBlockRe.ReplaceAllString(s, "```$1```\n")
	s = inlineRe.ReplaceAllString(s, "```$1```")

	s = strings.ReplaceAll(s, "<strong>", "*")
	s = strings.ReplaceAll(s, "</strong>", "*")
	s = strings.ReplaceAll(s, "<em>", "_")
	s = strings.ReplaceAll(s, "</em>", "_")
	s = strings.ReplaceAll(s, "<del>", "~")
	s = strings.ReplaceAll(s, "</del>", "~")

	// Headings become bold lines; WhatsApp has no heading markup.
	s = headingRe.ReplaceAllString(s, "*$1*\n")
	s = paragraphRe.ReplaceAllString(s, "$1\n")

	s = strings.ReplaceAll(s, "<ul>", "")
	s = strings.ReplaceAll(s, "</ul>", "")
	s = strings.ReplaceAll(s, "<ol>", "")
	s = strings.ReplaceAll(s, "</ol>", "")
	s = strings.ReplaceAll(s, "<li>", "• ")
	s = strings.ReplaceAll(s, "</li>", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<hr>", "")
	s = strings.ReplaceAll(s, "<hr/>", "")

	// Keep link targets visible since WhatsApp renders plain urls.
	s = anchorRe.ReplaceAllString(s, "$2 ($1)")

	s = tagRe.ReplaceAllString(s, "")

	s = html.UnescapeString(s)
	s = newlinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
