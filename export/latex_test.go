package export

import (
	"strings"
	"testing"
)

func TestSanitizeLaTeXRemovesConversionArtifacts(t *testing.T) {
	// WHAT: Internal page-break tokens and standalone # lines are stripped.
	// WHY: Both are artifacts of AI conversion that pdflatex chokes on.
	in := "line one\n%P%P%P\nline two\n  #  \nline three"
	out := SanitizeLaTeX(in)
	if strings.Contains(out, "%P%P%P") {
		t.Error("page-break token survived")
	}
	if strings.Contains(out, "#") {
		t.Error("bare # line survived")
	}
	if !strings.Contains(out, "line two") || !strings.Contains(out, "line three") {
		t.Error("content lines lost")
	}
}

func TestBuildDocumentWrapsBareBody(t *testing.T) {
	doc := BuildDocument(`\section{Mitosis}\nPhases.`, DocumentOptions{
		Title: "Bio Notes", Author: "sam", Style: "academic", Font: "palatino",
	})
	for _, want := range []string{
		`\documentclass`, `\begin{document}`, `\end{document}`,
		`\maketitle`, `\title{Bio Notes}`, `\usepackage{mathpazo}`, `\onehalfspacing`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestBuildDocumentCompletesExistingDocument(t *testing.T) {
	// WHAT: A body that already has a preamble gets its missing
	// \end{document} appended, not a second preamble.
	body := "\\documentclass{article}\n\\begin{document}\nHello"
	doc := BuildDocument(body, DocumentOptions{})
	if strings.Count(doc, `\documentclass`) != 1 {
		t.Error("preamble duplicated")
	}
	if !strings.HasSuffix(strings.TrimSpace(doc), `\end{document}`) {
		t.Error("\\end{document} not appended")
	}
}

func TestBuildDocumentInjectsMissingTheoremEnvs(t *testing.T) {
	// WHY: AI conversion writes \begin{theorem} without declaring the
	// environment; compilation fails without the injected \newtheorem.
	body := "\\documentclass{article}\n\\begin{document}\n\\begin{theorem}T\\end{theorem}\n\\end{document}"
	doc := BuildDocument(body, DocumentOptions{})
	if !strings.Contains(doc, `\newtheorem{theorem}{Theorem}`) {
		t.Error("theorem environment not injected")
	}
	idx := strings.Index(doc, `\newtheorem{theorem}`)
	if idx > strings.Index(doc, `\begin{document}`) {
		t.Error("\\newtheorem injected after \\begin{document}")
	}

	// already declared: no duplicate
	declared := "\\documentclass{article}\n\\newtheorem{lemma}{Lemma}\n\\begin{document}\n\\begin{lemma}L\\end{lemma}\n\\end{document}"
	doc = BuildDocument(declared, DocumentOptions{})
	if strings.Count(doc, `\newtheorem{lemma}`) != 1 {
		t.Error("lemma environment duplicated")
	}
}

func TestMarkdownToLaTeXFallback(t *testing.T) {
	md := "# Cell Biology\n\nIntro with **bold** and *italic*.\n\n- first point\n- 50% of cells\n\n## Phases"
	tex := MarkdownToLaTeX(md)

	for _, want := range []string{
		`\section{Cell Biology}`,
		`\subsection{Phases}`,
		`\textbf{bold}`,
		`\emph{italic}`,
		`\begin{itemize}`,
		`\item first point`,
		`50\% of cells`,
		`\end{itemize}`,
	} {
		if !strings.Contains(tex, want) {
			t.Errorf("fallback output missing %q in:\n%s", want, tex)
		}
	}
}

func TestEscapeLaTeX(t *testing.T) {
	in := `100% of $5 & a_b #1 {x}`
	out := EscapeLaTeX(in)
	for _, want := range []string{`\%`, `\$`, `\&`, `\_`, `\#`, `\{`, `\}`} {
		if !strings.Contains(out, want) {
			t.Errorf("escape missing %q in %q", want, out)
		}
	}
}

func TestWriteTXTStripsMarkdown(t *testing.T) {
	out := string(WriteTXT("# Title\n\n- **bold** item\n\nplain *emph* text", DocumentOptions{}))
	if strings.ContainsAny(out, "#*") {
		t.Errorf("markdown syntax survived: %q", out)
	}
	if !strings.Contains(out, "- bold item") {
		t.Errorf("bullet lost: %q", out)
	}
}
