package pipeline

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// escapeText escapes markup characters only; quotes stay literal.
var escapeText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// docxContent is a word-processor document reduced to what the description
// reader needs: a light HTML rendering and the raw paragraph text.
type docxContent struct {
	HTML string
	Text string
}

var errNoDocumentBody = errors.New("docx: word/document.xml not found")

func readDocx(content []byte) (docxContent, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return docxContent{}, fmt.Errorf("docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return docxContent{}, err
		}
		defer rc.Close()
		return renderDocumentXML(rc)
	}
	return docxContent{}, errNoDocumentBody
}

// renderDocumentXML walks WordprocessingML and emits tables, paragraphs and runs as
// HTML (<table><tr><td><p>, <strong>, <em>) plus tab-preserving plain text.
func renderDocumentXML(r io.Reader) (docxContent, error) {
	dec := xml.NewDecoder(r)
	var out, text strings.Builder

	var (
		inRunProps   bool
		inParaProps  bool
		bold, italic bool
		inText       bool
		runOpen      bool
	)

	closeRun := func() {
		if !runOpen {
			return
		}
		if italic {
			out.WriteString("</em>")
		}
		if bold {
			out.WriteString("</strong>")
		}
		runOpen = false
	}
	openRun := func() {
		if runOpen {
			return
		}
		if bold {
			out.WriteString("<strong>")
		}
		if italic {
			out.WriteString("<em>")
		}
		runOpen = true
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return docxContent{}, fmt.Errorf("docx: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				out.WriteString("<table>")
			case "tr":
				out.WriteString("<tr>")
			case "tc":
				out.WriteString("<td>")
			case "p":
				out.WriteString("<p>")
			case "r":
				bold, italic = false, false
			case "rPr":
				inRunProps = true
			case "pPr":
				inParaProps = true
			case "b":
				if inRunProps {
					bold = toggleOn(t)
				}
			case "i":
				if inRunProps {
					italic = toggleOn(t)
				}
			case "t":
				inText = true
				openRun()
			case "tab":
				if !inRunProps && !inParaProps {
					text.WriteByte('\t')
					out.WriteString("\t")
				}
			case "br":
				if !inRunProps && !inParaProps {
					text.WriteByte('\n')
					out.WriteString("<br />")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				out.WriteString("</table>")
			case "tr":
				out.WriteString("</tr>")
			case "tc":
				out.WriteString("</td>")
			case "p":
				closeRun()
				out.WriteString("</p>")
				text.WriteByte('\n')
			case "r":
				closeRun()
			case "rPr":
				inRunProps = false
			case "pPr":
				inParaProps = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				out.WriteString(escapeText.Replace(string(t)))
				text.Write(t)
			}
		}
	}

	return docxContent{HTML: out.String(), Text: text.String()}, nil
}

// toggleOn reads an on/off property such as <w:b/> or <w:b w:val="false"/>.
func toggleOn(el xml.StartElement) bool {
	for _, attr := range el.Attr {
		if attr.Name.Local != "val" {
			continue
		}
		switch strings.ToLower(attr.Value) {
		case "0", "false", "off", "none":
			return false
		}
	}
	return true
}
