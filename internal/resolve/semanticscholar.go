package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/joescharf/reviewgate/internal/models"
)

const defaultSemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// matchThreshold is the minimum Jaccard title similarity for a search
// result to count as the cited paper.
const matchThreshold = 0.4

// SemanticScholarTier searches the Semantic Scholar graph API by title.
type SemanticScholarTier struct {
	BaseURL string
	limiter *rateLimiter
}

// NewSemanticScholarTier creates the Semantic Scholar tier with the public
// API endpoint.
func NewSemanticScholarTier(limiter *rateLimiter) *SemanticScholarTier {
	return &SemanticScholarTier{BaseURL: defaultSemanticScholarBaseURL, limiter: limiter}
}

func (t *SemanticScholarTier) Name() models.Tier { return models.TierSemanticScholar }

type s2Response struct {
	Data []s2Paper `json:"data"`
}

type s2Paper struct {
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Venue    string `json:"venue"`
	Abstract string `json:"abstract"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
	OpenAccessPDF struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

// Lookup searches by extracted title+author and keeps the best title match
// above the similarity threshold.
func (t *SemanticScholarTier) Lookup(ctx context.Context, ref models.Reference) (*models.ResolvedReference, error) {
	query := searchQuery(ref.EntryText)
	if query == "" {
		return nil, nil
	}

	t.limiter.wait("semantic_scholar")
	params := url.Values{
		"query":  {query},
		"fields": {"title,authors,year,venue,abstract,externalIds,openAccessPdf"},
		"limit":  {"3"},
	}
	body, err := fetchURL(ctx, t.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("semantic_scholar: %w", err)
	}

	var result s2Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("semantic_scholar parse: %w", err)
	}

	wanted := queryTitle(query)
	var best *s2Paper
	bestScore := 0.0
	for i := range result.Data {
		if score := titleSimilarity(wanted, result.Data[i].Title); score > bestScore {
			bestScore = score
			best = &result.Data[i]
		}
	}
	if best == nil || bestScore < matchThreshold {
		return nil, nil
	}

	meta := models.PaperMeta{
		Title:         best.Title,
		Venue:         best.Venue,
		Abstract:      best.Abstract,
		DOI:           best.ExternalIDs.DOI,
		OpenAccessURL: best.OpenAccessPDF.URL,
	}
	if best.Year != 0 {
		meta.Year = strconv.Itoa(best.Year)
	}
	for _, a := range best.Authors {
		if a.Name != "" {
			meta.Authors = append(meta.Authors, a.Name)
		}
	}

	return &models.ResolvedReference{Tier: models.TierSemanticScholar, Meta: meta}, nil
}
