package storage

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Calibri"
	fontSize = 11
)

var (
	reSectionTitle = regexp.MustCompile(`^\d+\.\s+[A-Z][A-Z &]+$`)
	reBanner       = regexp.MustCompile(`^=+$`)
)

// ExportDocx renders summary text as a Word document at the DOCX path of
// the task. Section titles are bold, banners are dropped.
func (ls *LocalStorage) ExportDocx(taskID, title, summary string) (string, error) {
	if err := os.MkdirAll(ls.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	addRun(doc.AddParagraph(""), title, true, 16)

	for _, line := range strings.Split(summary, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || reBanner.MatchString(trimmed):
			continue
		case reSectionTitle.MatchString(trimmed):
			addRun(doc.AddParagraph(""), trimmed, true, 13)
		default:
			addRun(doc.AddParagraph(""), trimmed, false, fontSize)
		}
	}

	path := ls.DocxPath(taskID)
	if err := doc.SaveTo(path); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}
	return path, nil
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
