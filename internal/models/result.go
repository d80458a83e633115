package models

import "time"

// RawResponse is the raw outcome of one backend invocation. It is consumed
// exactly once by the verdict parser; Err marks a recoverable failure
// (timeout, non-zero exit) that the parser turns into conservative defaults.
type RawResponse struct {
	Backend  string
	UnitIDs  []string
	Text     string
	ExitCode int
	Elapsed  time.Duration
	Err      string
}

// Failed reports whether the invocation itself failed.
func (r RawResponse) Failed() bool { return r.Err != "" }

// ClaimResult merges all backends' verdicts for one claim.
type ClaimResult struct {
	ClaimID      string         `json:"claim_id"`
	Verdicts     []ClaimVerdict `json:"verdicts"`
	Severity     VerdictKind    `json:"severity"`
	Disagreement bool           `json:"disagreement"`
	Summary      string         `json:"summary"`
}

// RefResult merges all backends' verdicts for one reference, per axis, plus
// the pipeline's resolution when one was run.
type RefResult struct {
	RefKey       string             `json:"ref_key"`
	Verdicts     []RefVerdict       `json:"verdicts"`
	Resolved     *ResolvedReference `json:"resolved,omitempty"`
	Blocking     bool               `json:"blocking"`
	Disagreement bool               `json:"disagreement"`
	Summary      string             `json:"summary"`
}

// GateDecision is the run-level outcome.
type GateDecision string

const (
	GatePass  GateDecision = "PASS"
	GateBlock GateDecision = "BLOCK"
)
