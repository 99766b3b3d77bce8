// Package markup turns the lightweight markup produced by the content
// generator into the HTML body blog platforms expect. It handles headings,
// emphasis, links and paragraph folding only.
package markup

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	reHeading          = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`(^|\s)_([^_]+)_`)
	reLink             = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]*)\)`)
)

// ToHTML converts content to HTML. Content that already starts with a tag is
// returned unchanged.
func ToHTML(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "<") {
		return trimmed
	}

	var b strings.Builder
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(para, "<br>"))
		b.WriteString("</p>")
		para = para[:0]
	}

	for _, raw := range strings.Split(trimmed, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" {
			flush()
			continue
		}
		if m := reHeading.FindStringSubmatch(line); m != nil {
			flush()
			level := string(rune('0' + len(m[1])))
			b.WriteString("<h" + level + ">")
			b.WriteString(inline(m[2]))
			b.WriteString("</h" + level + ">")
			continue
		}
		para = append(para, inline(line))
	}
	flush()
	return b.String()
}

func inline(s string) string {
	s = html.EscapeString(s)
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		parts := reLink.FindStringSubmatch(m)
		text, href := parts[1], html.UnescapeString(parts[2])
		if !safeURL(href) {
			return text
		}
		return `<a href="` + html.EscapeString(href) + `">` + text + `</a>`
	})
	s = reBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = reBoldUnderscore.ReplaceAllString(s, "<strong>$1</strong>")
	s = reItalic.ReplaceAllString(s, "<em>$1</em>")
	s = reItalicUnderscore.ReplaceAllString(s, "$1<em>$2</em>")
	return s
}

func safeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}
