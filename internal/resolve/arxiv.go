package resolve

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/joescharf/reviewgate/internal/models"
)

const defaultArxivBaseURL = "http://export.arxiv.org/api/query"

// ArxivTier fetches metadata from the arXiv Atom API. It only fires for
// entries carrying an arXiv identifier; everything else is a miss.
type ArxivTier struct {
	BaseURL string
	limiter *rateLimiter
}

// NewArxivTier creates the arXiv tier with the public API endpoint.
func NewArxivTier(limiter *rateLimiter) *ArxivTier {
	return &ArxivTier{BaseURL: defaultArxivBaseURL, limiter: limiter}
}

func (t *ArxivTier) Name() models.Tier { return models.TierArxiv }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Type  string `xml:"type,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

var collapseWS = regexp.MustCompile(`\s+`)

// Lookup resolves an arXiv ID to metadata including the abstract and PDF link.
func (t *ArxivTier) Lookup(ctx context.Context, ref models.Reference) (*models.ResolvedReference, error) {
	id := extractArxivID(ref.EntryText)
	if id == "" {
		return nil, nil
	}

	t.limiter.wait("arxiv")
	body, err := fetchURL(ctx, fmt.Sprintf("%s?id_list=%s", t.BaseURL, url.QueryEscape(id)))
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv XML parse: %w", err)
	}
	if len(feed.Entries) == 0 || feed.Entries[0].Title == "" {
		return nil, nil
	}
	entry := feed.Entries[0]

	meta := models.PaperMeta{
		Title:    strings.TrimSpace(collapseWS.ReplaceAllString(entry.Title, " ")),
		Abstract: strings.TrimSpace(collapseWS.ReplaceAllString(entry.Summary, " ")),
	}
	for _, a := range entry.Authors {
		if a.Name != "" {
			meta.Authors = append(meta.Authors, a.Name)
		}
	}
	if len(entry.Published) >= 4 {
		meta.Year = entry.Published[:4]
	}
	for _, link := range entry.Links {
		switch {
		case link.Title == "doi" && meta.DOI == "":
			meta.DOI = link.Href
		case link.Type == "application/pdf" && meta.OpenAccessURL == "":
			meta.OpenAccessURL = link.Href
		}
	}

	return &models.ResolvedReference{Tier: models.TierArxiv, Meta: meta}, nil
}
