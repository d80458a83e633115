package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewgate/internal/models"
)

var testClaims = []models.Claim{
	{ID: "perf-claim", Text: "The system is 10x faster."},
	{ID: "memory-claim", Text: "Memory usage is constant."},
}

func respWith(text string) models.RawResponse {
	return models.RawResponse{Backend: "claude", Text: text}
}

func TestClaims_WellFormed(t *testing.T) {
	resp := respWith(`Here is my review.

### perf-claim
VERDICT: PASS
CLAIM: The system is 10x faster.
REASONING: Benchmarks in section 4 support this.

### memory-claim
VERDICT: CONCERN
CLAIM: Memory usage is constant.
REASONING: Only measured up to 1GB inputs.
`)

	verdicts, anomalies := Claims(resp, testClaims)
	require.Len(t, verdicts, 2)
	assert.Empty(t, anomalies)

	assert.Equal(t, "perf-claim", verdicts[0].ClaimID)
	assert.Equal(t, models.VerdictPass, verdicts[0].Kind)
	assert.Equal(t, "Benchmarks in section 4 support this.", verdicts[0].Reasoning)

	assert.Equal(t, "memory-claim", verdicts[1].ClaimID)
	assert.Equal(t, models.VerdictConcern, verdicts[1].Kind)
}

func TestClaims_FailedResponseDefaultsAllToBlock(t *testing.T) {
	resp := models.RawResponse{
		Backend: "gemini",
		Text:    "partial output before the timeout",
		Err:     "timed out after 300s",
	}

	verdicts, anomalies := Claims(resp, testClaims)
	require.Len(t, verdicts, 2)
	assert.Empty(t, anomalies)
	for _, v := range verdicts {
		assert.Equal(t, models.VerdictBlock, v.Kind)
		assert.Equal(t, FailedReasoning, v.Reasoning)
		assert.Equal(t, "gemini", v.Backend)
	}
}

func TestClaims_OmittedClaimGetsDefault(t *testing.T) {
	resp := respWith(`### perf-claim
VERDICT: PASS
REASONING: Fine.
`)

	verdicts, _ := Claims(resp, testClaims)
	require.Len(t, verdicts, 2)
	assert.Equal(t, models.VerdictPass, verdicts[0].Kind)
	assert.Equal(t, models.VerdictBlock, verdicts[1].Kind)
	assert.Equal(t, FailedReasoning, verdicts[1].Reasoning)
}

func TestClaims_UnknownIDDropped(t *testing.T) {
	resp := respWith(`### invented-claim
VERDICT: BLOCK
REASONING: This claim is wrong.

### perf-claim
VERDICT: PASS
REASONING: Fine.
`)

	verdicts, anomalies := Claims(resp, testClaims)
	require.Len(t, verdicts, 2)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0].Detail, `unknown claim "invented-claim"`)

	// The invented block must not leak onto a requested claim.
	assert.Equal(t, models.VerdictPass, verdicts[0].Kind)
	assert.Equal(t, models.VerdictBlock, verdicts[1].Kind)
}

func TestClaims_UnknownVerdictLiteral(t *testing.T) {
	resp := respWith(`### perf-claim
VERDICT: MAYBE
REASONING: Hard to say.
`)

	verdicts, anomalies := Claims(resp, testClaims)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0].Detail, `unknown verdict "MAYBE"`)
	assert.Equal(t, models.VerdictBlock, verdicts[0].Kind)
	assert.Equal(t, "Hard to say.", verdicts[0].Reasoning)
}

func TestClaims_FieldOrderTolerant(t *testing.T) {
	resp := respWith(`### perf-claim
CLAIM: The system is 10x faster.
REASONING: Looks right.
VERDICT: PASS
`)

	verdicts, _ := Claims(resp, testClaims)
	// REASONING captures to end of block, so VERDICT still parses but the
	// reasoning swallows the trailing line.
	assert.Equal(t, models.VerdictPass, verdicts[0].Kind)
}

func TestClaims_BlockTruncatedAtSeparator(t *testing.T) {
	resp := respWith(`### perf-claim
VERDICT: CONCERN
REASONING: Needs better benchmarks.

---

## GATE
BLOCK
`)

	verdicts, _ := Claims(resp, testClaims)
	assert.Equal(t, models.VerdictConcern, verdicts[0].Kind)
	assert.Equal(t, "Needs better benchmarks.", verdicts[0].Reasoning)
}

func TestClaims_DuplicateBlockFirstWins(t *testing.T) {
	resp := respWith(`### perf-claim
VERDICT: PASS
REASONING: First answer.

### perf-claim
VERDICT: BLOCK
REASONING: Second thoughts.
`)

	verdicts, _ := Claims(resp, testClaims)
	assert.Equal(t, models.VerdictPass, verdicts[0].Kind)
}

func TestClaims_LowercaseAndPunctuation(t *testing.T) {
	resp := respWith(`### perf-claim
VERDICT: pass.
REASONING: ok
`)

	verdicts, anomalies := Claims(resp, testClaims)
	assert.Empty(t, anomalies)
	assert.Equal(t, models.VerdictPass, verdicts[0].Kind)
}

func TestRefChecks_WellFormed(t *testing.T) {
	resp := respWith(`EXISTS: YES
ATTRIBUTION: YES
SUPPORTS_CLAIMS: PARTIAL
REASONING: The paper exists but only covers the weaker claim.
`)

	v, anomalies := RefChecks(resp, "smith2020")
	assert.Empty(t, anomalies)
	assert.Equal(t, models.AnswerYes, v.Exists)
	assert.Equal(t, models.AnswerYes, v.Attribution)
	assert.Equal(t, models.AnswerPartial, v.Supports)
	assert.Equal(t, "The paper exists but only covers the weaker claim.", v.Reasoning)
	assert.False(t, v.OK())
}

func TestRefChecks_FailedResponse(t *testing.T) {
	resp := models.RawResponse{Backend: "gemini", Err: "exit 1: command not found"}

	v, anomalies := RefChecks(resp, "smith2020")
	assert.Empty(t, anomalies)
	assert.Equal(t, models.AnswerNo, v.Exists)
	assert.Equal(t, models.AnswerNo, v.Attribution)
	assert.Equal(t, models.AnswerNo, v.Supports)
	assert.Equal(t, FailedReasoning+": exit 1: command not found", v.Reasoning)
}

func TestRefChecks_NoLabelsAtAll(t *testing.T) {
	v, _ := RefChecks(respWith("I could not find this reference anywhere."), "smith2020")
	assert.Equal(t, models.AnswerNo, v.Exists)
	assert.Equal(t, FailedReasoning, v.Reasoning)
}

func TestRefChecks_ReorderedLabels(t *testing.T) {
	resp := respWith(`SUPPORTS_CLAIMS: NO
EXISTS: UNCERTAIN
ATTRIBUTION: YES
`)

	v, _ := RefChecks(resp, "smith2020")
	assert.Equal(t, models.AnswerUncertain, v.Exists)
	assert.Equal(t, models.AnswerYes, v.Attribution)
	assert.Equal(t, models.AnswerNo, v.Supports)
}

func TestRefChecks_OutOfVocabulary(t *testing.T) {
	resp := respWith(`EXISTS: PROBABLY
ATTRIBUTION: YES
SUPPORTS_CLAIMS: YES
`)

	v, anomalies := RefChecks(resp, "smith2020")
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnswerNo, v.Exists, "unknown literal maps to NO")
	assert.Equal(t, models.AnswerYes, v.Attribution)
}

func TestRefChecks_PartialNotValidForExists(t *testing.T) {
	resp := respWith(`EXISTS: PARTIAL
ATTRIBUTION: PARTIAL
SUPPORTS_CLAIMS: YES
`)

	v, anomalies := RefChecks(resp, "smith2020")
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnswerNo, v.Exists)
	assert.Equal(t, models.AnswerPartial, v.Attribution)
}
