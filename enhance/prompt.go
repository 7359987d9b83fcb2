package enhance

import (
	"fmt"
	"strings"
)

// Prompt builders shared by the engine implementations. Both engines send
// the same instructions so output quality differences come from the model,
// not the wording.

// EnhanceSystemPrompt is the fixed role instruction for enhancement.
const EnhanceSystemPrompt = `You are a note-enhancement assistant. You rewrite raw study notes into clear, well-organized markdown. Preserve the author's meaning and terminology. Never invent facts that are not in the notes. Output only the rewritten notes, no commentary.`

// BuildEnhancePrompt renders the per-request instruction block from the
// directives.
func BuildEnhancePrompt(text string, d Directives) string {
	var b strings.Builder
	b.WriteString("Rewrite the notes below applying these transformations:\n")
	if d.Summarize {
		b.WriteString("- Condense the content into a concise summary keeping all key points.\n")
	}
	if d.Expand {
		b.WriteString("- Expand terse passages with short clarifying explanations.\n")
	}
	if d.AddHeaders {
		b.WriteString("- Organize the content under descriptive markdown headers.\n")
	}
	if d.AddBulletPoints {
		b.WriteString("- Convert enumerations and loose lists into bullet points.\n")
	}
	if len(d.FocusTopics) > 0 {
		fmt.Fprintf(&b, "- Give extra depth to these topics: %s.\n", strings.Join(d.FocusTopics, ", "))
	}
	switch d.Style {
	case "academic":
		b.WriteString("- Use a formal, academic tone.\n")
	case "personal":
		b.WriteString("- Keep a conversational, first-person tone.\n")
	case "minimalist":
		b.WriteString("- Be maximally terse; prefer fragments over sentences.\n")
	}
	if ci := strings.TrimSpace(d.CustomInstructions); ci != "" {
		fmt.Fprintf(&b, "- Additional instructions from the author: %s\n", ci)
	}
	b.WriteString("\nNOTES:\n")
	b.WriteString(text)
	return b.String()
}

// CorrectOCRPrompt asks for artifact repair without content changes.
const CorrectOCRPrompt = `The following text was extracted from handwritten or scanned notes and may contain recognition errors: broken words, wrong characters, duplicated fragments, stray page markers. Fix only the recognition artifacts. Do not rephrase, reorder, summarize, or add anything. Output only the corrected text.`

// ExtractSystemPrompt instructs vision extraction. Multi-image batches are
// a single request so the model sees page order and can merge sentences
// split across boundaries.
const ExtractSystemPrompt = `You transcribe handwritten and printed study notes from images. The images are ordered pages of one document. Transcribe all readable text in reading order, merging sentences that continue across page boundaries. Mark illegible fragments as [unreadable]. Output only the transcription.`

// TopicsSystemPrompt asks for a strict JSON array of topic strings.
const TopicsSystemPrompt = `You identify the main topics covered in study notes. Reply with a JSON array of short topic names, most central first, nothing else.`

// FlashcardsSystemPrompt asks for a strict JSON array of card objects.
const FlashcardsSystemPrompt = `You create study flashcards from notes. Reply with a JSON array of objects with keys "topic", "term", "definition", nothing else. Definitions are self-contained and at most two sentences.`

// BuildFlashcardsPrompt renders the card generation request.
func BuildFlashcardsPrompt(text string, topics []string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create exactly %d flashcards from the notes below.", count)
	if len(topics) > 0 {
		fmt.Fprintf(&b, " Cover each of these topics with at least one card: %s.", strings.Join(topics, ", "))
	}
	b.WriteString("\n\nNOTES:\n")
	b.WriteString(text)
	return b.String()
}

// LaTeXSystemPrompt asks for a compilable LaTeX body.
const LaTeXSystemPrompt = `You convert markdown study notes into LaTeX. Output a complete body that compiles inside a standard article preamble: use \section and \subsection for headers, itemize for bullet lists, and escape special characters. Do not emit \documentclass, \begin{document} or \end{document}. Output only LaTeX.`
