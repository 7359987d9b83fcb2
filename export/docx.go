package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// WriteDOCX renders markdown into a minimal but valid WordprocessingML
// package: headers become heading-styled paragraphs, bullets become list
// paragraphs, everything else plain paragraphs. Word and LibreOffice open
// the result; no external converter is involved.
func WriteDOCX(markdown string, opts DocumentOptions) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsXML,
		"word/document.xml":   documentXML(markdown, opts),
		"word/styles.xml":     stylesXML,
	}
	// fixed order keeps output byte-stable for identical input
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/styles.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("docx entry %s: %w", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			return nil, fmt.Errorf("docx write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx close: %w", err)
	}
	return buf.Bytes(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>
</w:styles>`

var mdEmphasis = regexp.MustCompile(`\*\*([^*]+)\*\*|\*([^*]+)\*`)

func documentXML(markdown string, opts DocumentOptions) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	if t := strings.TrimSpace(opts.Title); t != "" {
		writeParagraph(&b, "Heading1", t, false)
		if a := strings.TrimSpace(opts.Author); a != "" {
			writeParagraph(&b, "", a, false)
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			b.WriteString(`<w:p/>`)
		case mdHeader.MatchString(line):
			m := mdHeader.FindStringSubmatch(line)
			writeParagraph(&b, fmt.Sprintf("Heading%d", len(m[1])), m[2], false)
		case mdBullet.MatchString(line):
			writeParagraph(&b, "", mdBullet.ReplaceAllString(line, ""), true)
		default:
			writeParagraph(&b, "", trimmed, false)
		}
	}

	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

// writeParagraph emits one <w:p>, splitting emphasis markup into separate
// runs so bold and italic survive the conversion.
func writeParagraph(b *strings.Builder, style, text string, bullet bool) {
	b.WriteString(`<w:p>`)
	if style != "" || bullet {
		b.WriteString(`<w:pPr>`)
		if style != "" {
			fmt.Fprintf(b, `<w:pStyle w:val="%s"/>`, style)
		}
		if bullet {
			b.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`)
		}
		b.WriteString(`</w:pPr>`)
	}
	if bullet {
		writeRun(b, "• ", false, false)
	}

	rest := text
	for {
		loc := mdEmphasis.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if loc[0] > 0 {
			writeRun(b, rest[:loc[0]], false, false)
		}
		if loc[2] >= 0 { // **bold**
			writeRun(b, rest[loc[2]:loc[3]], true, false)
		} else { // *italic*
			writeRun(b, rest[loc[4]:loc[5]], false, true)
		}
		rest = rest[loc[1]:]
	}
	if rest != "" {
		writeRun(b, rest, false, false)
	}
	b.WriteString(`</w:p>`)
}

func writeRun(b *strings.Builder, text string, bold, italic bool) {
	b.WriteString(`<w:r>`)
	if bold || italic {
		b.WriteString(`<w:rPr>`)
		if bold {
			b.WriteString(`<w:b/>`)
		}
		if italic {
			b.WriteString(`<w:i/>`)
		}
		b.WriteString(`</w:rPr>`)
	}
	var esc bytes.Buffer
	xml.EscapeText(&esc, []byte(text))
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, esc.String())
	b.WriteString(`</w:r>`)
}
