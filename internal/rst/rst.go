// Package rst renders the subset of reStructuredText that course authors use
// in tag-processed config values: paragraphs, bullet lists, literal blocks
// and the strong/emphasis/inline-literal inline markup.
package rst

import (
	"html"
	"regexp"
	"strings"
)

var (
	strongRe  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	emRe      = regexp.MustCompile(`\*([^*]+)\*`)
	literalRe = regexp.MustCompile("``([^`]+)``")
)

// ToHTML renders reStructuredText source to HTML.
func ToHTML(src string) string {
	blocks := splitBlocks(src)
	var out []string
	for i := 0; i < len(blocks); i++ {
		block := blocks[i]
		switch {
		case strings.HasSuffix(strings.TrimSpace(block), "::") && i+1 < len(blocks) && indented(blocks[i+1]):
			text := strings.TrimSuffix(strings.TrimSpace(block), "::")
			if strings.TrimSpace(text) != "" {
				out = append(out, "<p>"+inline(strings.TrimSpace(text)+":")+"</p>")
			}
			i++
			out = append(out, "<pre>"+html.EscapeString(dedent(blocks[i]))+"</pre>")
		case bulletList(block):
			var items []string
			for _, line := range strings.Split(block, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				items = append(items, "<li>"+inline(strings.TrimPrefix(strings.TrimPrefix(line, "- "), "* "))+"</li>")
			}
			out = append(out, "<ul>"+strings.Join(items, "")+"</ul>")
		default:
			text := strings.TrimSpace(strings.Join(strings.Fields(block), " "))
			if text != "" {
				out = append(out, "<p>"+inline(text)+"</p>")
			}
		}
	}
	return strings.Join(out, "\n")
}

// inline escapes the text and applies inline markup, inline literals first so
// asterisks inside them stay untouched.
func inline(text string) string {
	escaped := html.EscapeString(text)
	escaped = literalRe.ReplaceAllString(escaped, "<code>$1</code>")
	escaped = strongRe.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = emRe.ReplaceAllString(escaped, "<em>$1</em>")
	return escaped
}

func splitBlocks(src string) []string {
	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	var blocks []string
	for _, block := range strings.Split(normalized, "\n\n") {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func indented(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			return false
		}
	}
	return true
}

func bulletList(block string) bool {
	lines := strings.Split(block, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "- ") && !strings.HasPrefix(trimmed, "* ") {
			return false
		}
	}
	return true
}

func dedent(block string) string {
	lines := strings.Split(block, "\n")
	margin := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return strings.TrimRight(block, "\n")
	}
	for i, line := range lines {
		if len(line) >= margin {
			lines[i] = line[margin:]
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
