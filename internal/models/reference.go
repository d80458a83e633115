package models

import (
	"strings"
	"time"
)

// Reference is one bibliography entry plus the paragraphs that cite it.
type Reference struct {
	Key       string
	EntryText string
	Contexts  []string

	// FetchedContent is the prompt-ready text of resolved metadata,
	// filled in after resolution. Empty when nothing was found.
	FetchedContent string
}

// Answer is a tri-state response to one reference sub-check.
type Answer string

const (
	AnswerYes       Answer = "YES"
	AnswerNo        Answer = "NO"
	AnswerUncertain Answer = "UNCERTAIN"
	AnswerPartial   Answer = "PARTIAL"
)

// RefVerdict is one backend's judgment of one reference across the three
// verification axes.
type RefVerdict struct {
	Backend     string `json:"backend"`
	RefKey      string `json:"ref_key"`
	Exists      Answer `json:"exists"`
	Attribution Answer `json:"attribution"`
	Supports    Answer `json:"supports"`
	Reasoning   string `json:"reasoning,omitempty"`
}

// OK reports whether the verdict is clean on all three axes.
func (v RefVerdict) OK() bool {
	return v.Exists == AnswerYes && v.Attribution == AnswerYes && v.Supports == AnswerYes
}

// Tier identifies which resolution stage produced a reference's metadata.
type Tier string

const (
	TierCache           Tier = "cache"
	TierLocal           Tier = "local"
	TierArxiv           Tier = "arxiv"
	TierSemanticScholar Tier = "semantic_scholar"
	TierCrossref        Tier = "crossref"
	TierNone            Tier = "none"
)

// PaperMeta is bibliographic metadata fetched for a reference.
type PaperMeta struct {
	Title         string   `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Year          string   `json:"year,omitempty"`
	Venue         string   `json:"venue,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	DOI           string   `json:"doi,omitempty"`
	OpenAccessURL string   `json:"open_access_url,omitempty"`
}

// Empty reports whether no field is populated.
func (m PaperMeta) Empty() bool {
	return m.Title == "" && len(m.Authors) == 0 && m.Year == "" &&
		m.Venue == "" && m.Abstract == "" && m.DOI == "" && m.OpenAccessURL == ""
}

// ResolvedReference is the outcome of running a reference through the
// resolution pipeline. Tier is TierNone when every tier missed.
type ResolvedReference struct {
	Key       string    `json:"key"`
	Tier      Tier      `json:"tier"`
	Meta      PaperMeta `json:"meta"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PromptText formats the resolved metadata for inclusion in a verification
// prompt. Returns "" for a tier=none resolution.
func (r ResolvedReference) PromptText() string {
	if r.Tier == TierNone {
		return ""
	}
	parts := []string{"Source: " + string(r.Tier)}
	if r.Meta.Title != "" {
		parts = append(parts, "Title: "+r.Meta.Title)
	}
	if len(r.Meta.Authors) > 0 {
		parts = append(parts, "Authors: "+strings.Join(r.Meta.Authors, ", "))
	}
	if r.Meta.Year != "" {
		parts = append(parts, "Year: "+r.Meta.Year)
	}
	if r.Meta.Venue != "" {
		parts = append(parts, "Venue: "+r.Meta.Venue)
	}
	if r.Meta.DOI != "" {
		parts = append(parts, "DOI: "+r.Meta.DOI)
	}
	if r.Meta.Abstract != "" {
		parts = append(parts, "Abstract: "+r.Meta.Abstract)
	}
	if r.Meta.OpenAccessURL != "" {
		parts = append(parts, "Open access: "+r.Meta.OpenAccessURL)
	}
	return strings.Join(parts, "\n")
}
