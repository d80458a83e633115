// Package refs extracts bibliographic references and their citation
// contexts from LaTeX or markdown documents.
package refs

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joescharf/reviewgate/internal/models"
)

var (
	bibitemRe   = regexp.MustCompile(`(?s)\\bibitem\{([^}]+)\}\s*(.*?)(?:\\bibitem|\\end\{thebibliography\})`)
	newblockRe  = regexp.MustCompile(`\\newblock\s*`)
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	mdSectionRe = regexp.MustCompile(`(?ms)^##\s*References\s*\n(.*)`)
	mdEntryRe   = regexp.MustCompile(`(?ms)^\[(\w+)\]\s*(.*?)(?:^\[\w+\]|\z)`)
)

// Extract pulls references from a document, auto-detecting LaTeX vs
// markdown format.
func Extract(text string) []models.Reference {
	if strings.Contains(text, `\begin{thebibliography}`) || strings.Contains(text, `\bibitem`) {
		return extractLatex(text)
	}
	return extractMarkdown(text)
}

// Load reads a file and extracts its references.
func Load(path string) ([]models.Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Extract(string(data)), nil
}

// extractLatex handles \bibitem bibliographies and \cite citations.
func extractLatex(text string) []models.Reference {
	type entry struct{ key, text string }
	var entries []entry

	// Overlapping matches: bibitemRe consumes up to the next \bibitem, so
	// rescan from each match's entry start.
	rest := text
	for {
		m := bibitemRe.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		key := rest[m[2]:m[3]]
		body := strings.TrimSpace(newblockRe.ReplaceAllString(rest[m[4]:m[5]], ""))
		entries = append(entries, entry{key, body})
		rest = rest[m[5]:]
	}
	if len(entries) == 0 {
		return nil
	}

	body := text
	if idx := strings.Index(text, `\begin{thebibliography}`); idx >= 0 {
		body = text[:idx]
	}
	paragraphs := paragraphRe.Split(body, -1)

	refs := make([]models.Reference, 0, len(entries))
	for _, e := range entries {
		// Key may appear with others in a multi-cite.
		citeRe := regexp.MustCompile(`\\cite\{[^}]*\b` + regexp.QuoteMeta(e.key) + `\b[^}]*\}`)
		refs = append(refs, models.Reference{
			Key:       e.key,
			EntryText: e.text,
			Contexts:  citingParagraphs(paragraphs, citeRe),
		})
	}
	return refs
}

// extractMarkdown handles "## References" sections with [N] style entries.
func extractMarkdown(text string) []models.Reference {
	loc := mdSectionRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	section := text[loc[2]:loc[3]]

	type entry struct{ key, text string }
	var entries []entry
	rest := section
	for {
		m := mdEntryRe.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		entries = append(entries, entry{
			key:  rest[m[2]:m[3]],
			text: strings.TrimSpace(rest[m[4]:m[5]]),
		})
		rest = rest[m[5]:]
	}
	if len(entries) == 0 {
		return nil
	}

	paragraphs := paragraphRe.Split(text[:loc[0]], -1)
	refs := make([]models.Reference, 0, len(entries))
	for _, e := range entries {
		citeRe := regexp.MustCompile(`\[` + regexp.QuoteMeta(e.key) + `\]`)
		refs = append(refs, models.Reference{
			Key:       e.key,
			EntryText: e.text,
			Contexts:  citingParagraphs(paragraphs, citeRe),
		})
	}
	return refs
}

func citingParagraphs(paragraphs []string, citeRe *regexp.Regexp) []string {
	var contexts []string
	for _, para := range paragraphs {
		if citeRe.MatchString(para) {
			if cleaned := strings.TrimSpace(para); cleaned != "" {
				contexts = append(contexts, cleaned)
			}
		}
	}
	return contexts
}
