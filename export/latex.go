// Package export turns a completed note's enhanced markdown into download
// artifacts: PDF via LaTeX compilation, DOCX, and plain text. Generation is
// lazy and idempotent per note and format.
package export

import (
	"fmt"
	"regexp"
	"strings"
)

// DocumentOptions carry the presentation choices into the rendered LaTeX.
type DocumentOptions struct {
	Title  string
	Author string
	Style  string // academic, personal, minimalist
	Font   string // friendly name, mapped to a LaTeX font package
}

// fontPackages maps friendly font names to preamble package lines.
var fontPackages = map[string]string{
	"times":     `\usepackage{mathptmx}`,
	"helvetica": `\usepackage[scaled]{helvet}` + "\n" + `\renewcommand{\familydefault}{\sfdefault}`,
	"palatino":  `\usepackage{mathpazo}`,
	"garamond":  `\usepackage[urw-garamond]{mathdesign}`,
	"courier":   `\usepackage{courier}` + "\n" + `\renewcommand{\familydefault}{\ttdefault}`,
}

var (
	pageBreakToken = regexp.MustCompile(`%P%P%P`)
	bareHashLine   = regexp.MustCompile(`(?m)^\s*#\s*$`)
)

// SanitizeLaTeX strips artifacts AI conversion leaves behind: internal
// page-break tokens and stray standalone # lines that would break
// compilation.
func SanitizeLaTeX(src string) string {
	src = pageBreakToken.ReplaceAllString(src, "")
	src = bareHashLine.ReplaceAllString(src, "")
	return src
}

// theoremEnvs are environments the AI references without defining. Each
// missing one gets a \newtheorem injected into the preamble.
var theoremEnvs = []string{"theorem", "lemma", "definition", "corollary", "proposition", "example", "remark"}

// BuildDocument turns a LaTeX body into a complete compilable document.
// Bodies that already carry a \documentclass are completed in place: the
// missing \end{document} is appended and undefined theorem environments are
// declared. Bare bodies are wrapped in the standard preamble.
func BuildDocument(body string, opts DocumentOptions) string {
	body = SanitizeLaTeX(body)

	if strings.Contains(body, `\documentclass`) {
		if !strings.Contains(body, `\end{document}`) {
			body += "\n\\end{document}\n"
		}
		return injectTheoremEnvs(body)
	}

	var b strings.Builder
	b.WriteString("\\documentclass[11pt]{article}\n")
	b.WriteString("\\usepackage[utf8]{inputenc}\n")
	b.WriteString("\\usepackage[T1]{fontenc}\n")
	b.WriteString("\\usepackage{amsmath,amssymb,amsthm}\n")
	b.WriteString("\\usepackage[margin=2.5cm]{geometry}\n")
	b.WriteString("\\usepackage{enumitem}\n")
	b.WriteString("\\usepackage{hyperref}\n")

	if pkg, ok := fontPackages[strings.ToLower(strings.TrimSpace(opts.Font))]; ok {
		b.WriteString(pkg + "\n")
	}
	b.WriteString(styleBlock(opts.Style))

	for _, env := range theoremEnvs {
		if usesEnv(body, env) {
			fmt.Fprintf(&b, "\\newtheorem{%s}{%s}\n", env, capitalize(env))
		}
	}

	if t := strings.TrimSpace(opts.Title); t != "" {
		fmt.Fprintf(&b, "\\title{%s}\n", EscapeLaTeX(t))
		author := strings.TrimSpace(opts.Author)
		fmt.Fprintf(&b, "\\author{%s}\n", EscapeLaTeX(author))
		b.WriteString("\\date{\\today}\n")
	}

	b.WriteString("\\begin{document}\n")
	if strings.TrimSpace(opts.Title) != "" {
		b.WriteString("\\maketitle\n")
	}
	b.WriteString(body)
	b.WriteString("\n\\end{document}\n")
	return b.String()
}

func styleBlock(style string) string {
	switch style {
	case "academic":
		return "\\usepackage{setspace}\n\\onehalfspacing\n"
	case "personal":
		return "\\setlength{\\parindent}{0pt}\n\\setlength{\\parskip}{0.6em}\n"
	case "minimalist":
		return "\\pagestyle{empty}\n\\setlength{\\parindent}{0pt}\n"
	}
	return ""
}

func usesEnv(body, env string) bool {
	return strings.Contains(body, `\begin{`+env+`}`) &&
		!strings.Contains(body, `\newtheorem{`+env+`}`)
}

func injectTheoremEnvs(doc string) string {
	var missing []string
	for _, env := range theoremEnvs {
		if usesEnv(doc, env) {
			missing = append(missing, fmt.Sprintf("\\newtheorem{%s}{%s}", env, capitalize(env)))
		}
	}
	if len(missing) == 0 {
		return doc
	}
	marker := `\begin{document}`
	i := strings.Index(doc, marker)
	if i < 0 {
		return doc
	}
	return doc[:i] + strings.Join(missing, "\n") + "\n" + doc[i:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeLaTeX escapes the special characters of plain text destined for a
// LaTeX document.
func EscapeLaTeX(s string) string {
	return latexEscaper.Replace(s)
}

var (
	mdHeader = regexp.MustCompile(`(?m)^(#{1,3})\s+(.*)$`)
	mdBold   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic = regexp.MustCompile(`\*([^*]+)\*`)
	mdBullet = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

// MarkdownToLaTeX is the offline fallback when the engine's LaTeX
// conversion is unavailable: a direct structural translation covering
// headers, emphasis and bullet lists, with everything else escaped.
func MarkdownToLaTeX(md string) string {
	lines := strings.Split(md, "\n")
	var b strings.Builder
	inList := false

	for _, line := range lines {
		switch {
		case mdHeader.MatchString(line):
			if inList {
				b.WriteString("\\end{itemize}\n")
				inList = false
			}
			m := mdHeader.FindStringSubmatch(line)
			cmd := "section"
			switch len(m[1]) {
			case 2:
				cmd = "subsection"
			case 3:
				cmd = "subsubsection"
			}
			fmt.Fprintf(&b, "\\%s{%s}\n", cmd, inlineLaTeX(m[2]))
		case mdBullet.MatchString(line):
			if !inList {
				b.WriteString("\\begin{itemize}\n")
				inList = true
			}
			item := mdBullet.ReplaceAllString(line, "")
			fmt.Fprintf(&b, "  \\item %s\n", inlineLaTeX(item))
		case strings.TrimSpace(line) == "":
			if inList {
				b.WriteString("\\end{itemize}\n")
				inList = false
			}
			b.WriteString("\n")
		default:
			if inList {
				b.WriteString("\\end{itemize}\n")
				inList = false
			}
			b.WriteString(inlineLaTeX(line) + "\n")
		}
	}
	if inList {
		b.WriteString("\\end{itemize}\n")
	}
	return b.String()
}

// inlineLaTeX escapes a text run, then restores emphasis markup.
func inlineLaTeX(s string) string {
	s = EscapeLaTeX(s)
	s = mdBold.ReplaceAllString(s, `\textbf{$1}`)
	s = mdItalic.ReplaceAllString(s, `\emph{$1}`)
	return s
}
