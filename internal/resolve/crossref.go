package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/joescharf/reviewgate/internal/models"
)

const defaultCrossrefBaseURL = "https://api.crossref.org/works"

// CrossrefTier searches the CrossRef works API. It is the last external
// tier: broad coverage, but rarely any abstract.
type CrossrefTier struct {
	BaseURL string
	Mailto  string
	limiter *rateLimiter
}

// NewCrossrefTier creates the CrossRef tier with the public API endpoint.
func NewCrossrefTier(limiter *rateLimiter) *CrossrefTier {
	return &CrossrefTier{
		BaseURL: defaultCrossrefBaseURL,
		Mailto:  "reviewgate@joescharf.com",
		limiter: limiter,
	}
}

func (t *CrossrefTier) Name() models.Tier { return models.TierCrossref }

type crossrefResponse struct {
	Message struct {
		Items []crossrefItem `json:"items"`
	} `json:"message"`
}

type crossrefItem struct {
	Title          []string `json:"title"`
	ContainerTitle []string `json:"container-title"`
	DOI            string   `json:"DOI"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	PublishedPrint  crossrefDate `json:"published-print"`
	PublishedOnline crossrefDate `json:"published-online"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() string {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return strconv.Itoa(d.DateParts[0][0])
	}
	return ""
}

func (i crossrefItem) title() string {
	if len(i.Title) > 0 {
		return i.Title[0]
	}
	return ""
}

// Lookup searches bibliographically and keeps the best title match above
// the similarity threshold.
func (t *CrossrefTier) Lookup(ctx context.Context, ref models.Reference) (*models.ResolvedReference, error) {
	query := searchQuery(ref.EntryText)
	if query == "" {
		return nil, nil
	}

	t.limiter.wait("crossref")
	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {"3"},
		"mailto":              {t.Mailto},
	}
	body, err := fetchURL(ctx, t.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("crossref: %w", err)
	}

	var result crossrefResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("crossref parse: %w", err)
	}

	wanted := queryTitle(query)
	var best *crossrefItem
	bestScore := 0.0
	for i := range result.Message.Items {
		if score := titleSimilarity(wanted, result.Message.Items[i].title()); score > bestScore {
			bestScore = score
			best = &result.Message.Items[i]
		}
	}
	if best == nil || bestScore < matchThreshold {
		return nil, nil
	}

	meta := models.PaperMeta{
		Title: best.title(),
		DOI:   best.DOI,
	}
	if len(best.ContainerTitle) > 0 {
		meta.Venue = best.ContainerTitle[0]
	}
	if y := best.PublishedPrint.year(); y != "" {
		meta.Year = y
	} else {
		meta.Year = best.PublishedOnline.year()
	}
	for _, a := range best.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}

	return &models.ResolvedReference{Tier: models.TierCrossref, Meta: meta}, nil
}
