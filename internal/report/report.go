// Package report renders run results for humans and for machines. It is a
// pure consumer of engine results: formatting choices here never affect
// the gate decision.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joescharf/reviewgate/internal/engine"
	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
	"github.com/joescharf/reviewgate/internal/parser"
)

// backendCounts tallies one backend's verdicts across all claims.
type backendCounts struct {
	pass, concern, block int
}

func countByBackend(run *engine.ReviewRun) map[string]*backendCounts {
	counts := make(map[string]*backendCounts)
	for _, c := range run.Claims {
		for _, v := range c.Verdicts {
			bc := counts[v.Backend]
			if bc == nil {
				bc = &backendCounts{}
				counts[v.Backend] = bc
			}
			switch v.Kind {
			case models.VerdictPass:
				bc.pass++
			case models.VerdictConcern:
				bc.concern++
			case models.VerdictBlock:
				bc.block++
			}
		}
	}
	return counts
}

// Review writes the full human-readable claims report to ui.Out.
func Review(ui *output.UI, run *engine.ReviewRun, backends []string, file string, verbose bool) {
	w := ui.Out
	fmt.Fprintf(w, "Reviewing: %s\n", file)
	fmt.Fprintf(w, "Models: %s\n\n", strings.Join(backends, ", "))

	counts := countByBackend(run)
	table := ui.Table([]string{"MODEL", "PASS", "CONCERN", "BLOCK"})
	for _, b := range backends {
		bc := counts[b]
		if bc == nil {
			continue
		}
		table.Append([]string{b,
			output.Green(fmt.Sprintf("%d", bc.pass)),
			output.Yellow(fmt.Sprintf("%d", bc.concern)),
			output.Red(fmt.Sprintf("%d", bc.block)),
		})
	}
	table.Render()
	fmt.Fprintln(w)

	// BLOCKs first, then CONCERNs; PASSes only with -v.
	for _, severity := range []models.VerdictKind{models.VerdictBlock, models.VerdictConcern} {
		for _, c := range run.Claims {
			if c.Severity == severity {
				writeClaim(w, c)
			}
		}
	}
	if verbose {
		for _, c := range run.Claims {
			if c.Severity == models.VerdictPass {
				writeClaim(w, c)
			}
		}
	}

	writeDisagreements(w, run)
	fmt.Fprintln(w)
	Gate(w, run)
}

func writeClaim(w io.Writer, c models.ClaimResult) {
	fmt.Fprintf(w, "  %-7s  %s\n", output.SeverityColor(c.Severity), c.ClaimID)
	for _, v := range c.Verdicts {
		if v.ClaimText != "" {
			fmt.Fprintf(w, "           %q\n", v.ClaimText)
			break
		}
	}
	for _, v := range c.Verdicts {
		fmt.Fprintf(w, "           %s: %s - %s\n", v.Backend, output.SeverityColor(v.Kind), v.Reasoning)
	}
	fmt.Fprintln(w)
}

func writeDisagreements(w io.Writer, run *engine.ReviewRun) {
	var disagreeing []models.ClaimResult
	for _, c := range run.Claims {
		if c.Disagreement {
			disagreeing = append(disagreeing, c)
		}
	}
	if len(disagreeing) == 0 {
		fmt.Fprintln(w, "No disagreements between models.")
		return
	}

	fmt.Fprintln(w, "=== Disagreements ===")
	for _, c := range disagreeing {
		fmt.Fprintf(w, "  claim: %s\n", c.ClaimID)
		for _, v := range c.Verdicts {
			fmt.Fprintf(w, "    %s: %s %q\n", v.Backend, output.SeverityColor(v.Kind), v.Reasoning)
		}
		fmt.Fprintln(w)
	}
}

// Compare writes a comparison-focused report highlighting disagreements.
func Compare(ui *output.UI, run *engine.ReviewRun, backends []string, file string) {
	w := ui.Out
	fmt.Fprintf(w, "Comparing reviews: %s\n", file)
	fmt.Fprintf(w, "Models: %s\n\n", strings.Join(backends, ", "))

	disagreements := 0
	for _, c := range run.Claims {
		if c.Disagreement {
			disagreements++
		}
	}
	if disagreements == 0 {
		fmt.Fprintln(w, "All models agree on all claims.")
		fmt.Fprintln(w)
		Gate(w, run)
		return
	}

	fmt.Fprintf(w, "Found %d disagreement(s):\n\n", disagreements)
	writeDisagreements(w, run)

	counts := countByBackend(run)
	for _, b := range backends {
		if bc := counts[b]; bc != nil {
			fmt.Fprintf(w, "  %s: %dP / %dC / %dB\n", b, bc.pass, bc.concern, bc.block)
		}
	}
	fmt.Fprintln(w)
	Gate(w, run)
}

// Gate writes the final gate verdict line.
func Gate(w io.Writer, run *engine.ReviewRun) {
	if run.Gate == models.GatePass {
		fmt.Fprintf(w, "=== Gate: %s (all models passed) ===\n", output.GateColor(run.Gate))
		return
	}

	blocks, toolFailures := 0, 0
	for _, c := range run.Claims {
		for _, v := range c.Verdicts {
			if v.Kind != models.VerdictBlock {
				continue
			}
			blocks++
			if strings.HasPrefix(v.Reasoning, parser.FailedReasoning) {
				toolFailures++
			}
		}
	}
	fmt.Fprintf(w, "=== Gate: %s (%d unresolved BLOCKs", output.GateColor(run.Gate), blocks)
	if toolFailures > 0 {
		// Make tooling failure distinguishable from substantive disagreement.
		fmt.Fprintf(w, ", %d from unparseable or failed responses", toolFailures)
	}
	fmt.Fprintln(w, ") ===")
}

// reviewJSON is the interchange shape for a claims run.
type reviewJSON struct {
	File     string               `json:"file"`
	Backends []string             `json:"backends"`
	Gate     models.GateDecision  `json:"gate"`
	Claims   []models.ClaimResult `json:"claims"`
}

// ReviewJSON writes the claims run as indented JSON.
func ReviewJSON(w io.Writer, run *engine.ReviewRun, backends []string, file string) error {
	return writeJSON(w, reviewJSON{
		File:     file,
		Backends: backends,
		Gate:     run.Gate,
		Claims:   run.Claims,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
