package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/joescharf/reviewgate/internal/engine"
	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
)

// Refs writes the human-readable reference check report to ui.Out.
func Refs(ui *output.UI, run *engine.RefRun, references []models.Reference, backends []string, file string, verbose bool) {
	w := ui.Out
	fmt.Fprintf(w, "Reference check: %s\n", file)
	fmt.Fprintf(w, "Models: %s\n", strings.Join(backends, ", "))
	fmt.Fprintf(w, "References found: %d\n\n", len(references))

	fetchedByKey := make(map[string]bool, len(references))
	anyFetched := false
	for _, ref := range references {
		fetchedByKey[ref.Key] = ref.FetchedContent != ""
		if ref.FetchedContent != "" {
			anyFetched = true
		}
	}

	okCount := 0
	for _, res := range run.Refs {
		allOK := true
		for _, v := range res.Verdicts {
			if !v.OK() {
				allOK = false
				break
			}
		}

		fetchTag := ""
		if anyFetched {
			fetchTag = " (memory)"
			if fetchedByKey[res.RefKey] {
				fetchTag = " (fetched)"
			}
		}
		tierTag := ""
		if res.Resolved != nil {
			tierTag = fmt.Sprintf(" tier=%s", output.TierColor(res.Resolved.Tier))
		}

		if allOK && !res.Blocking {
			okCount++
			if verbose {
				fmt.Fprintf(w, "  [%s]%s%s\n", res.RefKey, fetchTag, tierTag)
				for _, v := range res.Verdicts {
					fmt.Fprintf(w, "    %s: %s\n", v.Backend, output.Green("OK"))
				}
				fmt.Fprintln(w)
			}
			continue
		}

		fmt.Fprintf(w, "  [%s]%s%s\n", res.RefKey, fetchTag, tierTag)
		if res.Blocking {
			fmt.Fprintf(w, "    %s %s\n", output.Red("BLOCK:"), res.Summary)
		}
		for _, v := range res.Verdicts {
			if v.OK() {
				fmt.Fprintf(w, "    %s: %s\n", v.Backend, output.Green("OK"))
				continue
			}
			var issues []string
			if v.Exists != models.AnswerYes {
				issues = append(issues, "exists="+string(v.Exists))
			}
			if v.Attribution != models.AnswerYes {
				issues = append(issues, "attribution="+string(v.Attribution))
			}
			if v.Supports != models.AnswerYes {
				issues = append(issues, "supports="+string(v.Supports))
			}
			fmt.Fprintf(w, "    %s: %s\n", v.Backend, strings.Join(issues, ", "))
			if v.Reasoning != "" {
				fmt.Fprintf(w, "      %s\n", shorten(v.Reasoning, 200))
			}
		}
		fmt.Fprintln(w)
	}

	if okCount > 0 && !verbose {
		fmt.Fprintf(w, "(%d reference(s) passed all checks, use -v to see details)\n\n", okCount)
	}

	disagreements := 0
	for _, res := range run.Refs {
		if res.Disagreement {
			disagreements++
		}
	}
	if disagreements > 0 {
		fmt.Fprintf(w, "=== Disagreements (%d) ===\n", disagreements)
		for _, res := range run.Refs {
			if !res.Disagreement {
				continue
			}
			fmt.Fprintf(w, "  [%s]\n", res.RefKey)
			for _, v := range res.Verdicts {
				fmt.Fprintf(w, "    %s: exists=%s attribution=%s supports=%s\n",
					v.Backend, v.Exists, v.Attribution, v.Supports)
			}
			fmt.Fprintln(w)
		}
	}

	gate := "=== Gate: " + output.GateColor(run.Gate) + " ==="
	fmt.Fprintln(w, gate)
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// refJSON is the interchange shape for a reference run.
type refJSON struct {
	File     string              `json:"file"`
	Backends []string            `json:"backends"`
	Gate     models.GateDecision `json:"gate"`
	Refs     []models.RefResult  `json:"references"`
}

// RefsJSON writes the reference run as indented JSON.
func RefsJSON(w io.Writer, run *engine.RefRun, backends []string, file string) error {
	return writeJSON(w, refJSON{
		File:     file,
		Backends: backends,
		Gate:     run.Gate,
		Refs:     run.Refs,
	})
}
