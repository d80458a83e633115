// Package claims produces the claim review units for a document.
//
// Claims either come from an explicit YAML file or from inline [C:id]
// annotations in the document. The engine requires the unit set up front so
// backend responses can be matched against known identifiers instead of
// trusting whatever IDs a model invents.
package claims

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/reviewgate/internal/models"
)

type fileClaim struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// LoadFile reads a YAML claims file: a list of {id, text} entries.
func LoadFile(path string) ([]models.Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims file: %w", err)
	}
	var raw []fileClaim
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse claims file %s: %w", path, err)
	}

	seen := make(map[string]bool)
	claims := make([]models.Claim, 0, len(raw))
	for _, c := range raw {
		if c.ID == "" {
			return nil, fmt.Errorf("claims file %s: entry with empty id", path)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("claims file %s: duplicate claim id %q", path, c.ID)
		}
		seen[c.ID] = true
		claims = append(claims, models.Claim{ID: c.ID, Text: strings.TrimSpace(c.Text)})
	}
	return claims, nil
}

var (
	annotationRe = regexp.MustCompile(`\[C:([A-Za-z0-9_-]+)\]\s*`)
	paragraphRe  = regexp.MustCompile(`\n\s*\n`)
)

// Extract finds inline [C:id] annotations. Each annotation claims the rest
// of its sentence-or-paragraph: text from the marker to the next blank
// line. Duplicate IDs keep the first occurrence.
func Extract(document string) []models.Claim {
	var claims []models.Claim
	seen := make(map[string]bool)

	for _, para := range paragraphRe.Split(document, -1) {
		m := annotationRe.FindStringSubmatchIndex(para)
		if m == nil {
			continue
		}
		id := para[m[2]:m[3]]
		if seen[id] {
			continue
		}
		seen[id] = true
		text := strings.TrimSpace(annotationRe.ReplaceAllString(para, ""))
		claims = append(claims, models.Claim{ID: id, Text: text})
	}
	return claims
}
