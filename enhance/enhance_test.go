package enhance

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`["a","b"]`, `["a","b"]`},
		{"```json\n[\"a\"]\n```", `["a"]`},
		{"```\n{\"x\":1}\n```", `{"x":1}`},
		{"  ```latex\n\\section{Hi}\n```  ", `\section{Hi}`},
		// a fence-less string starting with backticks inside
		{"text with ``` inline", "text with ``` inline"},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Errorf("StripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildEnhancePromptReflectsDirectives(t *testing.T) {
	// WHAT: Every enabled directive shows up in the rendered prompt and
	// disabled ones do not.
	// WHY: A silently dropped toggle means the user's setting has no effect
	// and nothing downstream would catch it.
	d := Directives{
		Summarize:          true,
		AddHeaders:         true,
		FocusTopics:        []string{"entropy", "enthalpy"},
		Style:              "academic",
		CustomInstructions: "keep formulas verbatim",
	}
	p := BuildEnhancePrompt("raw text here", d)

	for _, want := range []string{"summary", "headers", "entropy, enthalpy", "academic", "keep formulas verbatim", "raw text here"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, absent := range []string{"bullet", "Expand"} {
		if strings.Contains(p, absent) {
			t.Errorf("prompt mentions disabled directive %q", absent)
		}
	}
}

func TestBuildFlashcardsPrompt(t *testing.T) {
	p := BuildFlashcardsPrompt("notes", []string{"rings", "fields"}, 7)
	if !strings.Contains(p, "exactly 7 flashcards") {
		t.Errorf("prompt missing count: %q", p)
	}
	if !strings.Contains(p, "rings, fields") {
		t.Errorf("prompt missing topics: %q", p)
	}
}

func TestRegistryPick(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Pick("openai"); err == nil {
		t.Error("Pick on empty registry should fail")
	}
	fake := struct{ Engine }{}
	r.Register("fake", fake)
	if _, err := r.Pick(""); err != nil {
		t.Errorf("Pick(\"\") with one engine = %v", err)
	}
	if _, err := r.Pick("other"); err == nil {
		t.Error("Pick of unregistered engine should fail")
	}
}
