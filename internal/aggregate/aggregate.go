// Package aggregate merges per-backend verdicts into per-unit results and a
// run-level gate decision. It performs no I/O and fails only on malformed
// input (an empty verdict set for a declared unit), which is an
// internal-consistency error in the calling sequence.
package aggregate

import (
	"fmt"

	"github.com/joescharf/reviewgate/internal/models"
)

// Claim merges all backends' verdicts for one claim. Severity is the
// maximum across verdicts: a single BLOCK outweighs any number of PASSes.
// Disagreement is independent of severity.
func Claim(claimID string, verdicts []models.ClaimVerdict) (models.ClaimResult, error) {
	if len(verdicts) == 0 {
		return models.ClaimResult{}, fmt.Errorf("internal consistency: no verdicts for claim %s", claimID)
	}

	res := models.ClaimResult{
		ClaimID:  claimID,
		Verdicts: verdicts,
		Severity: verdicts[0].Kind,
	}
	counts := map[models.VerdictKind]int{}
	for _, v := range verdicts {
		counts[v.Kind]++
		if models.MoreSevere(v.Kind, res.Severity) {
			res.Severity = v.Kind
		}
	}
	res.Disagreement = len(counts) > 1
	res.Summary = fmt.Sprintf("%d/%d backends rate %s", counts[res.Severity], len(verdicts), res.Severity)
	return res, nil
}

// Ref merges all backends' verdicts for one reference. The three axes are
// aggregated independently. Resolution is evidence on the existence axis:
// a tier hit with metadata votes YES, a tier=none resolution votes NO.
// The reference is blocking iff existence is false by majority, regardless
// of the other two axes; a nonexistent reference makes them moot.
func Ref(refKey string, verdicts []models.RefVerdict, resolved *models.ResolvedReference) (models.RefResult, error) {
	if len(verdicts) == 0 {
		return models.RefResult{}, fmt.Errorf("internal consistency: no verdicts for reference %s", refKey)
	}

	res := models.RefResult{
		RefKey:   refKey,
		Verdicts: verdicts,
		Resolved: resolved,
	}

	existsNo, existsVotes := 0, 0
	exists := map[models.Answer]int{}
	attribution := map[models.Answer]int{}
	supports := map[models.Answer]int{}
	for _, v := range verdicts {
		exists[v.Exists]++
		attribution[v.Attribution]++
		supports[v.Supports]++
		existsVotes++
		if v.Exists == models.AnswerNo {
			existsNo++
		}
	}
	if resolved != nil {
		existsVotes++
		if resolved.Tier == models.TierNone {
			existsNo++
		}
	}

	res.Blocking = existsNo*2 > existsVotes
	res.Disagreement = len(exists) > 1 || len(attribution) > 1 || len(supports) > 1

	switch {
	case res.Blocking:
		res.Summary = fmt.Sprintf("existence false by majority (%d/%d)", existsNo, existsVotes)
	case res.Disagreement:
		res.Summary = "backends disagree"
	default:
		res.Summary = "all backends agree"
	}
	return res, nil
}

// Gate reduces all per-unit results to the run-level decision: BLOCK iff
// any claim has BLOCK severity or any reference is existence-blocked.
func Gate(claims []models.ClaimResult, refs []models.RefResult) models.GateDecision {
	for _, c := range claims {
		if c.Severity == models.VerdictBlock {
			return models.GateBlock
		}
	}
	for _, r := range refs {
		if r.Blocking {
			return models.GateBlock
		}
	}
	return models.GatePass
}
