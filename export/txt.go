package export

import "strings"

// WriteTXT strips markdown syntax for a plain-text download. Structure is
// kept readable: headers get underlines, bullets become "- " lines.
func WriteTXT(markdown string, opts DocumentOptions) []byte {
	var b strings.Builder
	if t := strings.TrimSpace(opts.Title); t != "" {
		b.WriteString(t + "\n")
		b.WriteString(strings.Repeat("=", len(t)) + "\n")
		if a := strings.TrimSpace(opts.Author); a != "" {
			b.WriteString(a + "\n")
		}
		b.WriteString("\n")
	}

	for _, line := range strings.Split(markdown, "\n") {
		switch {
		case mdHeader.MatchString(line):
			m := mdHeader.FindStringSubmatch(line)
			title := stripEmphasis(m[2])
			b.WriteString(title + "\n")
			if len(m[1]) == 1 {
				b.WriteString(strings.Repeat("=", len(title)) + "\n")
			} else {
				b.WriteString(strings.Repeat("-", len(title)) + "\n")
			}
		case mdBullet.MatchString(line):
			b.WriteString("- " + stripEmphasis(mdBullet.ReplaceAllString(line, "")) + "\n")
		default:
			b.WriteString(stripEmphasis(line) + "\n")
		}
	}
	return []byte(b.String())
}

func stripEmphasis(s string) string {
	s = mdBold.ReplaceAllString(s, "$1")
	s = mdItalic.ReplaceAllString(s, "$1")
	return s
}
