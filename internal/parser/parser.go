// Package parser converts raw backend responses into typed verdicts.
//
// The expected response shape is a sequence of labeled blocks. Parsing is
// tolerant: extra whitespace, reordered fields within a block, and
// commentary outside blocks are all accepted. Malformed input is data, not
// an error: a failed or unparseable response degrades every requested
// review unit to its conservative default rather than propagating a parse
// failure.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joescharf/reviewgate/internal/models"
)

// FailedReasoning marks verdicts produced by invocation or parse failure,
// so reports can tell tooling failure apart from model disagreement.
const FailedReasoning = "unparseable or failed response"

// Anomaly records a response fragment the parser could not honor.
type Anomaly struct {
	Backend string
	Detail  string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s", a.Backend, a.Detail)
}

var (
	claimHeadingRe = regexp.MustCompile(`(?m)^###\s+(\S+)\s*$`)
	verdictLineRe  = regexp.MustCompile(`(?m)^\s*VERDICT:\s*(\S+)`)
	claimLineRe    = regexp.MustCompile(`(?m)^\s*CLAIM:\s*(.+)$`)
	reasoningRe    = regexp.MustCompile(`(?s)REASONING:\s*(.*)\z`)
)

// Claims parses a claim-review response. Every requested claim receives
// exactly one verdict: parsed where a block matched, the conservative
// default (BLOCK) where the response failed, omitted the claim, or used an
// unknown verdict literal. Blocks naming unknown claim IDs are dropped and
// reported as anomalies, never coerced onto a requested claim.
func Claims(resp models.RawResponse, requested []models.Claim) ([]models.ClaimVerdict, []Anomaly) {
	var anomalies []Anomaly
	byID := make(map[string]models.Claim, len(requested))
	for _, c := range requested {
		byID[c.ID] = c
	}

	parsed := make(map[string]models.ClaimVerdict)
	if !resp.Failed() {
		for id, block := range claimBlocks(resp.Text) {
			claim, known := byID[id]
			if !known {
				anomalies = append(anomalies, Anomaly{
					Backend: resp.Backend,
					Detail:  fmt.Sprintf("verdict block for unknown claim %q dropped", id),
				})
				continue
			}
			v := models.ClaimVerdict{
				Backend:   resp.Backend,
				ClaimID:   id,
				ClaimText: claim.Text,
				Kind:      models.VerdictBlock,
				Reasoning: FailedReasoning,
			}
			if m := verdictLineRe.FindStringSubmatch(block); m != nil {
				literal := strings.ToUpper(strings.Trim(m[1], ".,;:"))
				kind, ok := models.KindFromString(literal)
				if !ok {
					anomalies = append(anomalies, Anomaly{
						Backend: resp.Backend,
						Detail:  fmt.Sprintf("unknown verdict %q for claim %s mapped to BLOCK", m[1], id),
					})
				}
				v.Kind = kind
			}
			if m := claimLineRe.FindStringSubmatch(block); m != nil {
				v.ClaimText = strings.TrimSpace(m[1])
			}
			if m := reasoningRe.FindStringSubmatch(block); m != nil {
				v.Reasoning = strings.TrimSpace(m[1])
			}
			parsed[id] = v
		}
	}

	// Join barrier semantics: the output always covers the full requested
	// set, in requested order.
	verdicts := make([]models.ClaimVerdict, 0, len(requested))
	for _, c := range requested {
		if v, ok := parsed[c.ID]; ok {
			verdicts = append(verdicts, v)
			continue
		}
		verdicts = append(verdicts, models.ClaimVerdict{
			Backend:   resp.Backend,
			ClaimID:   c.ID,
			ClaimText: c.Text,
			Kind:      models.VerdictBlock,
			Reasoning: FailedReasoning,
		})
	}
	return verdicts, anomalies
}

// claimBlocks splits a response into per-claim blocks keyed by claim ID.
// A block runs from its "### id" heading to the next heading, a "## "
// section, or a "---" separator. Text outside blocks is ignored.
func claimBlocks(text string) map[string]string {
	blocks := make(map[string]string)
	matches := claimHeadingRe.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		id := text[m[2]:m[3]]
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := text[start:end]
		for _, stop := range []string{"\n---", "\n## "} {
			if idx := strings.Index(body, stop); idx >= 0 {
				body = body[:idx]
			}
		}
		// First block for an ID wins; duplicates are model noise.
		if _, seen := blocks[id]; !seen {
			blocks[id] = body
		}
	}
	return blocks
}

// Axis vocabularies for reference checks. Out-of-vocabulary literals map to
// NO, the conservative default.
var (
	existsVocab  = map[models.Answer]bool{models.AnswerYes: true, models.AnswerNo: true, models.AnswerUncertain: true}
	partialVocab = map[models.Answer]bool{models.AnswerYes: true, models.AnswerNo: true, models.AnswerPartial: true}
)

var refReasoningRe = regexp.MustCompile(`(?s)REASONING:\s*(.*)\z`)

// RefChecks parses a single-reference verification response. A failed or
// fully unparseable response yields the all-false conservative default.
func RefChecks(resp models.RawResponse, refKey string) (models.RefVerdict, []Anomaly) {
	v := models.RefVerdict{
		Backend:     resp.Backend,
		RefKey:      refKey,
		Exists:      models.AnswerNo,
		Attribution: models.AnswerNo,
		Supports:    models.AnswerNo,
		Reasoning:   FailedReasoning,
	}
	if resp.Failed() {
		if resp.Err != "" {
			v.Reasoning = FailedReasoning + ": " + resp.Err
		}
		return v, nil
	}

	var anomalies []Anomaly
	matched := 0
	// Labels may appear in any order; scan line by line.
	for _, line := range strings.Split(resp.Text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "EXISTS:"):
			v.Exists = parseAnswer(line, existsVocab, resp.Backend, refKey, &anomalies)
			matched++
		case strings.HasPrefix(line, "ATTRIBUTION:"):
			v.Attribution = parseAnswer(line, partialVocab, resp.Backend, refKey, &anomalies)
			matched++
		case strings.HasPrefix(line, "SUPPORTS_CLAIMS:"):
			v.Supports = parseAnswer(line, partialVocab, resp.Backend, refKey, &anomalies)
			matched++
		}
	}
	if matched == 0 {
		return v, anomalies
	}

	v.Reasoning = ""
	if m := refReasoningRe.FindStringSubmatch(resp.Text); m != nil {
		v.Reasoning = strings.TrimSpace(m[1])
	}
	return v, anomalies
}

func parseAnswer(line string, vocab map[models.Answer]bool, backend, refKey string, anomalies *[]Anomaly) models.Answer {
	_, raw, _ := strings.Cut(line, ":")
	literal := models.Answer(strings.ToUpper(strings.Trim(strings.TrimSpace(raw), ".,;:")))
	if vocab[literal] {
		return literal
	}
	*anomalies = append(*anomalies, Anomaly{
		Backend: backend,
		Detail:  fmt.Sprintf("unknown answer %q for reference %s mapped to NO", raw, refKey),
	})
	return models.AnswerNo
}
