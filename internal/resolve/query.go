package resolve

import (
	"regexp"
	"strings"
)

// Journal-like substrings used to reject venue names mistaken for titles.
var journalMarkers = []string{
	"Trans.", "J.", "Rev.", "Proc.", "Lett.", "Ann.", "Phys.",
	"Math.", "Commun.", "Acad.", "Soc.", "Bull.", "Arch.",
	"Journal", "Review", "Proceedings", "Letters", "Annals",
}

var (
	texCommandRe  = regexp.MustCompile(`\\[a-zA-Z]+\{([^}]*)\}`)
	texLeftoverRe = regexp.MustCompile(`[{}\\]`)

	titleRes = []*regexp.Regexp{
		regexp.MustCompile(`\\textit\{([^}]+)\}`),
		regexp.MustCompile(`\\emph\{([^}]+)\}`),
		regexp.MustCompile(`\{\\em\s+([^}]+)\}`),
		regexp.MustCompile("``([^']+)''"),
		regexp.MustCompile(`"([^"]{10,})"`),
	}

	bibitemRe = regexp.MustCompile(`\\bibitem\{[^}]*\}\s*`)
	leadNumRe = regexp.MustCompile(`^\s*\[\d+\]\s*`)
	authorRes = []*regexp.Regexp{
		regexp.MustCompile(`^([A-Z][a-zA-Z'-]+),`),
		regexp.MustCompile(`^[A-Z]\.\s*(?:[A-Z]\.\s*)*([A-Z][a-zA-Z'-]+)`),
		regexp.MustCompile(`^[A-Z][a-z]+\s+([A-Z][a-zA-Z'-]+)`),
	}

	arxivRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)arXiv[:\s]+(\d{4}\.\d{4,5}(?:v\d+)?)`),
		regexp.MustCompile(`(?i)arXiv[:\s]+([a-z-]+/\d{7})`),
		regexp.MustCompile(`(?i)arxiv\.org/abs/(\d{4}\.\d{4,5}(?:v\d+)?)`),
		regexp.MustCompile(`(?i)arxiv\.org/abs/([a-z-]+/\d{7})`),
	}
)

// searchQuery extracts "title first-author-surname" from a bibliography
// entry, falling back to cleaned entry text when neither is found.
func searchQuery(entryText string) string {
	title := extractTitle(entryText)
	author := extractFirstAuthor(entryText)

	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if author != "" {
		parts = append(parts, author)
	}
	if len(parts) == 0 {
		cleaned := texCommandRe.ReplaceAllString(entryText, "$1")
		cleaned = texLeftoverRe.ReplaceAllString(cleaned, "")
		if len(cleaned) > 120 {
			cleaned = cleaned[:120]
		}
		parts = append(parts, cleaned)
	}
	return strings.Join(parts, " ")
}

// extractTitle tries the usual LaTeX and quoting conventions for a paper
// title, rejecting strings that look like journal names.
func extractTitle(entryText string) string {
	for _, re := range titleRes {
		if m := re.FindStringSubmatch(entryText); m != nil {
			if title := cleanTitle(m[1]); title != "" {
				return title
			}
		}
	}
	return ""
}

func cleanTitle(text string) string {
	text = texCommandRe.ReplaceAllString(text, "$1")
	text = texLeftoverRe.ReplaceAllString(text, "")
	text = strings.TrimRight(strings.TrimSpace(text), ".,;:")
	if looksLikeJournal(text) {
		return ""
	}
	return text
}

func looksLikeJournal(text string) bool {
	for _, marker := range journalMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// extractFirstAuthor pulls the first author surname from a bib entry.
func extractFirstAuthor(entryText string) string {
	text := bibitemRe.ReplaceAllString(entryText, "")
	text = leadNumRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	for _, re := range authorRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractArxivID finds an arXiv identifier (new or old style, or URL form).
func extractArxivID(entryText string) string {
	for _, re := range arxivRes {
		if m := re.FindStringSubmatch(entryText); m != nil {
			return m[1]
		}
	}
	return ""
}

// titleSimilarity is Jaccard word-overlap similarity between two titles.
func titleSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// queryTitle strips the trailing author term from a search query so tier
// matching compares titles only.
func queryTitle(query string) string {
	if idx := strings.LastIndex(query, " "); idx > 0 {
		return query[:idx]
	}
	return query
}
