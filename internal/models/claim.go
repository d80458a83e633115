package models

// Claim is a substantive statement extracted from the document under review.
type Claim struct {
	ID   string
	Text string
}

// VerdictKind is a model's rating of a single claim.
type VerdictKind string

const (
	VerdictPass    VerdictKind = "PASS"
	VerdictConcern VerdictKind = "CONCERN"
	VerdictBlock   VerdictKind = "BLOCK"
)

// severityRank orders verdict kinds from least to most severe.
var severityRank = map[VerdictKind]int{
	VerdictPass:    0,
	VerdictConcern: 1,
	VerdictBlock:   2,
}

// KindFromString maps a raw literal to a known VerdictKind.
// Unknown literals return (VerdictBlock, false): the caller sees the
// conservative default and knows the literal was out of vocabulary.
func KindFromString(s string) (VerdictKind, bool) {
	switch VerdictKind(s) {
	case VerdictPass, VerdictConcern, VerdictBlock:
		return VerdictKind(s), true
	}
	return VerdictBlock, false
}

// MoreSevere reports whether a outranks b in the PASS < CONCERN < BLOCK order.
func MoreSevere(a, b VerdictKind) bool {
	return severityRank[a] > severityRank[b]
}

// ClaimVerdict is one backend's judgment of one claim.
type ClaimVerdict struct {
	Backend   string      `json:"backend"`
	ClaimID   string      `json:"claim_id"`
	ClaimText string      `json:"claim_text,omitempty"`
	Kind      VerdictKind `json:"verdict"`
	Reasoning string      `json:"reasoning,omitempty"`
}
