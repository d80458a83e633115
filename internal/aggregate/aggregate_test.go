package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewgate/internal/models"
)

func cv(backend string, kind models.VerdictKind) models.ClaimVerdict {
	return models.ClaimVerdict{Backend: backend, ClaimID: "c1", Kind: kind}
}

func rv(backend string, exists, attribution, supports models.Answer) models.RefVerdict {
	return models.RefVerdict{
		Backend:     backend,
		RefKey:      "smith2020",
		Exists:      exists,
		Attribution: attribution,
		Supports:    supports,
	}
}

func TestClaim_EmptyVerdicts(t *testing.T) {
	_, err := Claim("c1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no verdicts for claim c1")
}

func TestClaim_SeverityIsMax(t *testing.T) {
	tests := []struct {
		name  string
		kinds []models.VerdictKind
		want  models.VerdictKind
	}{
		{"all pass", []models.VerdictKind{models.VerdictPass, models.VerdictPass}, models.VerdictPass},
		{"concern outranks pass", []models.VerdictKind{models.VerdictPass, models.VerdictConcern}, models.VerdictConcern},
		{"single block outweighs passes", []models.VerdictKind{models.VerdictPass, models.VerdictPass, models.VerdictBlock}, models.VerdictBlock},
		{"block outranks concern", []models.VerdictKind{models.VerdictConcern, models.VerdictBlock}, models.VerdictBlock},
		{"order independent", []models.VerdictKind{models.VerdictBlock, models.VerdictPass, models.VerdictPass}, models.VerdictBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verdicts []models.ClaimVerdict
			for i, k := range tt.kinds {
				verdicts = append(verdicts, cv(string(rune('a'+i)), k))
			}
			res, err := Claim("c1", verdicts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Severity)
		})
	}
}

func TestClaim_Disagreement(t *testing.T) {
	t.Run("unanimous verdicts do not disagree", func(t *testing.T) {
		res, err := Claim("c1", []models.ClaimVerdict{
			cv("claude", models.VerdictBlock),
			cv("gemini", models.VerdictBlock),
		})
		require.NoError(t, err)
		assert.False(t, res.Disagreement)
		assert.Equal(t, models.VerdictBlock, res.Severity)
	})

	t.Run("mixed verdicts disagree", func(t *testing.T) {
		res, err := Claim("c1", []models.ClaimVerdict{
			cv("claude", models.VerdictPass),
			cv("gemini", models.VerdictConcern),
		})
		require.NoError(t, err)
		assert.True(t, res.Disagreement)
	})

	t.Run("single verdict never disagrees", func(t *testing.T) {
		res, err := Claim("c1", []models.ClaimVerdict{cv("claude", models.VerdictConcern)})
		require.NoError(t, err)
		assert.False(t, res.Disagreement)
	})
}

func TestClaim_Summary(t *testing.T) {
	res, err := Claim("c1", []models.ClaimVerdict{
		cv("claude", models.VerdictPass),
		cv("gemini", models.VerdictPass),
		cv("claude-api", models.VerdictBlock),
	})
	require.NoError(t, err)
	assert.Equal(t, "1/3 backends rate BLOCK", res.Summary)
}

func TestRef_EmptyVerdicts(t *testing.T) {
	_, err := Ref("smith2020", nil, nil)
	require.Error(t, err)
}

func TestRef_ExistenceMajority(t *testing.T) {
	t.Run("single no vote does not block", func(t *testing.T) {
		res, err := Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerYes, models.AnswerYes, models.AnswerYes),
			rv("gemini", models.AnswerNo, models.AnswerYes, models.AnswerYes),
			rv("claude-api", models.AnswerYes, models.AnswerYes, models.AnswerYes),
		}, nil)
		require.NoError(t, err)
		assert.False(t, res.Blocking)
		assert.True(t, res.Disagreement)
	})

	t.Run("majority no blocks", func(t *testing.T) {
		res, err := Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerNo, models.AnswerUncertain, models.AnswerUncertain),
			rv("gemini", models.AnswerNo, models.AnswerUncertain, models.AnswerUncertain),
			rv("claude-api", models.AnswerYes, models.AnswerYes, models.AnswerYes),
		}, nil)
		require.NoError(t, err)
		assert.True(t, res.Blocking)
	})

	t.Run("even split does not block", func(t *testing.T) {
		res, err := Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerNo, models.AnswerYes, models.AnswerYes),
			rv("gemini", models.AnswerYes, models.AnswerYes, models.AnswerYes),
		}, nil)
		require.NoError(t, err)
		assert.False(t, res.Blocking)
	})

	t.Run("attribution and supports never block", func(t *testing.T) {
		res, err := Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerYes, models.AnswerNo, models.AnswerNo),
			rv("gemini", models.AnswerYes, models.AnswerNo, models.AnswerNo),
		}, nil)
		require.NoError(t, err)
		assert.False(t, res.Blocking)
		assert.False(t, res.Disagreement)
	})
}

func TestRef_ResolverVote(t *testing.T) {
	t.Run("tier none tips the majority", func(t *testing.T) {
		// 1 NO of 2 model votes is a tie; the failed resolution breaks it.
		resolved := &models.ResolvedReference{Key: "smith2020", Tier: models.TierNone}
		res, err := Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerNo, models.AnswerUncertain, models.AnswerUncertain),
			rv("gemini", models.AnswerYes, models.AnswerYes, models.AnswerYes),
		}, resolved)
		require.NoError(t, err)
		assert.True(t, res.Blocking)
	})

	t.Run("tier hit defends against a model majority", func(t *testing.T) {
		// 2 NO of 2 model votes, but verified metadata makes it 2 of 3.
		resolved := &models.ResolvedReference{
			Key:  "smith2020",
			Tier: models.TierArxiv,
			Meta: models.PaperMeta{Title: "A Real Paper"},
		}
		res, err := Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerNo, models.AnswerUncertain, models.AnswerUncertain),
			rv("gemini", models.AnswerNo, models.AnswerUncertain, models.AnswerUncertain),
		}, resolved)
		require.NoError(t, err)
		assert.True(t, res.Blocking, "2 of 3 is still a majority")

		res, err = Ref("smith2020", []models.RefVerdict{
			rv("claude", models.AnswerNo, models.AnswerUncertain, models.AnswerUncertain),
			rv("gemini", models.AnswerYes, models.AnswerYes, models.AnswerYes),
			rv("claude-api", models.AnswerYes, models.AnswerYes, models.AnswerYes),
		}, resolved)
		require.NoError(t, err)
		assert.False(t, res.Blocking)
	})
}

func TestGate(t *testing.T) {
	pass := models.ClaimResult{ClaimID: "c1", Severity: models.VerdictPass}
	concern := models.ClaimResult{ClaimID: "c2", Severity: models.VerdictConcern}
	block := models.ClaimResult{ClaimID: "c3", Severity: models.VerdictBlock}
	okRef := models.RefResult{RefKey: "a"}
	badRef := models.RefResult{RefKey: "b", Blocking: true}

	t.Run("empty run passes", func(t *testing.T) {
		assert.Equal(t, models.GatePass, Gate(nil, nil))
	})

	t.Run("concern does not block", func(t *testing.T) {
		assert.Equal(t, models.GatePass, Gate([]models.ClaimResult{pass, concern}, []models.RefResult{okRef}))
	})

	t.Run("any claim block blocks", func(t *testing.T) {
		assert.Equal(t, models.GateBlock, Gate([]models.ClaimResult{pass, block}, nil))
	})

	t.Run("any blocking reference blocks", func(t *testing.T) {
		assert.Equal(t, models.GateBlock, Gate([]models.ClaimResult{pass}, []models.RefResult{okRef, badRef}))
	})
}

func TestMoreSevere(t *testing.T) {
	assert.True(t, models.MoreSevere(models.VerdictBlock, models.VerdictConcern))
	assert.True(t, models.MoreSevere(models.VerdictConcern, models.VerdictPass))
	assert.False(t, models.MoreSevere(models.VerdictPass, models.VerdictPass))
	assert.False(t, models.MoreSevere(models.VerdictPass, models.VerdictBlock))
}
