// Package prompt builds the review and reference-verification prompts.
// The engine treats the output as opaque strings.
package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joescharf/reviewgate/internal/models"
)

const reviewHeader = `You are reviewing a research paper for pre-publication quality. Your job is to find errors, not encourage.

For each substantive claim you identify in the paper:
1. State the claim in one sentence
2. Is it derived from stated axioms, or reverse-engineered from the known answer?
3. Is the supporting evidence sufficient?
4. Does it contradict any other claim in the paper?

Rate each claim: PASS (no issues), CONCERN (minor, doesn't block), BLOCK (must be addressed).

Do not be diplomatic. Do not hedge. If a claim is wrong, say so directly.

Output your review in this exact format:

## Claims

### claim-short-id
VERDICT: PASS|CONCERN|BLOCK
CLAIM: One-sentence statement of the claim
REASONING: Your assessment
---

## Summary
GATE: PASS|BLOCK
TOTAL_CLAIMS: N
PASS: N
CONCERN: N
BLOCK: N
`

// Review builds the full document review prompt with optional belief
// registry and chronological entries context.
func Review(document, beliefs string, entries []string) string {
	parts := []string{reviewHeader}

	parts = append(parts, "## Document Under Review\n", document)

	if beliefs != "" {
		parts = append(parts, "\n## Belief Registry\n",
			"The following belief registry shows claim status (IN/OUT/STALE) "+
				"and known contradictions. Flag any claims in the paper that "+
				"contradict OUT or STALE beliefs.\n",
			beliefs)
	}

	if len(entries) > 0 {
		parts = append(parts, "\n## Recent Entries (Chronological Context)\n",
			"These entries show the research trail. Use them to detect "+
				"cosmetic fixes, unresolved problems, or claims that evolved "+
				"without adequate justification.\n")
		for _, entry := range entries {
			parts = append(parts, entry, "\n---\n")
		}
	}

	return strings.Join(parts, "\n")
}

const knowledgeOnlyNote = "You are checking this reference from your knowledge only. " +
	"If you do not recognize it, say UNCERTAIN for EXISTS rather than guessing."

const fetchedNote = "Retrieved paper information is provided below. Use this as primary " +
	"evidence for your verification. For EXISTS, verify that the bib entry matches the " +
	"retrieved record. For ATTRIBUTION and SUPPORTS_CLAIMS, use the abstract and metadata " +
	"to assess the claims."

// Reference builds a verification prompt for a single reference.
func Reference(ref models.Reference) string {
	var b strings.Builder

	b.WriteString("You are verifying a single reference in a research paper. Your job is to check three things:\n\n")
	b.WriteString("1. **EXISTS**: Does this reference appear to be a real publication? Check author names, title, year, and venue for plausibility. If you recognize the work, confirm it exists. If you don't recognize it but the details are plausible, say UNCERTAIN.\n\n")
	b.WriteString("2. **ATTRIBUTION**: Does the paper correctly describe what this reference says? Check each citation context: is the claim attributed to this reference actually something the referenced work establishes?\n\n")
	b.WriteString("3. **SUPPORTS_CLAIMS**: Does the reference actually support the claims made where it is cited? A reference can exist and be correctly attributed but still not support the specific claim being made (e.g., citing a general result for a specific case it doesn't cover).\n\n")

	if ref.FetchedContent != "" {
		b.WriteString(fetchedNote)
	} else {
		b.WriteString(knowledgeOnlyNote)
	}
	b.WriteString("\n\n## Reference Entry\n\n")
	fmt.Fprintf(&b, "Key: %s\n\n%s\n", ref.Key, ref.EntryText)

	if ref.FetchedContent != "" {
		b.WriteString("\n## Retrieved Paper Information\n\n")
		b.WriteString(ref.FetchedContent)
		b.WriteString("\n")
	}

	b.WriteString("\n## Citation Contexts\n\n")
	b.WriteString("The following paragraphs cite this reference:\n\n")
	if len(ref.Contexts) > 0 {
		b.WriteString(strings.Join(ref.Contexts, "\n\n---\n\n"))
	} else {
		b.WriteString("(No citation contexts found in the document body.)")
	}

	b.WriteString("\n\n## Output Format\n\n")
	b.WriteString("Respond in exactly this format:\n\n")
	b.WriteString("EXISTS: YES|NO|UNCERTAIN\n")
	b.WriteString("ATTRIBUTION: YES|NO|PARTIAL\n")
	b.WriteString("SUPPORTS_CLAIMS: YES|NO|PARTIAL\n")
	b.WriteString("REASONING: Your detailed assessment. Be specific about any problems found.")

	return b.String()
}

// LoadDocument reads the document under review.
func LoadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// LoadBeliefs reads an optional belief registry file. A missing file is "".
func LoadBeliefs(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// LoadEntries reads all markdown files under a directory, sorted by name,
// each prefixed with its filename heading.
func LoadEntries(dir string) []string {
	if dir == "" {
		return nil
	}
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)

	var entries []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		entries = append(entries, fmt.Sprintf("### %s\n\n%s", filepath.Base(path), data))
	}
	return entries
}
