// Package engine orchestrates one review run: it fans prompts out across
// model backends, parses the raw responses into verdicts, and aggregates
// them into per-unit results and a gate decision.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/reviewgate/internal/aggregate"
	"github.com/joescharf/reviewgate/internal/backend"
	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
	"github.com/joescharf/reviewgate/internal/parser"
	"github.com/joescharf/reviewgate/internal/prompt"
)

// refConcurrency bounds in-flight backend×reference invocations.
const refConcurrency = 8

// Engine runs reviews across a fixed set of backend invokers.
type Engine struct {
	invokers []backend.Invoker
	timeout  time.Duration
	ui       *output.UI
}

// New creates an engine. At least one invoker is required; each invoker is
// checked up front and an unavailable backend is dropped with a warning;
// unavailability is fatal for that backend only.
func New(invokers []backend.Invoker, timeout time.Duration, ui *output.UI) (*Engine, error) {
	if len(invokers) == 0 {
		return nil, errors.New("no backends specified")
	}
	var usable []backend.Invoker
	for _, inv := range invokers {
		if err := inv.Check(); err != nil {
			if errors.Is(err, backend.ErrUnavailable) {
				ui.Warning("skipping backend %s: %v", inv.Name(), err)
				continue
			}
			return nil, fmt.Errorf("backend %s: %w", inv.Name(), err)
		}
		usable = append(usable, inv)
	}
	if len(usable) == 0 {
		return nil, errors.New("no usable backends: all unavailable")
	}
	return &Engine{invokers: usable, timeout: timeout, ui: ui}, nil
}

// Backends returns the names of the usable backends, in invocation order.
func (e *Engine) Backends() []string {
	names := make([]string, len(e.invokers))
	for i, inv := range e.invokers {
		names[i] = inv.Name()
	}
	return names
}

// ReviewRun is the outcome of one claims review.
type ReviewRun struct {
	Claims    []models.ClaimResult
	Gate      models.GateDecision
	Responses map[string]models.RawResponse // by backend
	Anomalies []parser.Anomaly
}

// RunReview sends one prompt to every backend, parses each response
// against the requested claim set, and aggregates. Backends run in
// parallel; one backend's failure, timeout, or malformed output never
// blocks another's result; the results merge only after all complete.
func (e *Engine) RunReview(ctx context.Context, reviewClaims []models.Claim, reviewPrompt string) (*ReviewRun, error) {
	if len(reviewClaims) == 0 {
		return nil, errors.New("no claims to review")
	}
	if reviewPrompt == "" {
		return nil, errors.New("empty review prompt")
	}

	unitIDs := make([]string, len(reviewClaims))
	for i, c := range reviewClaims {
		unitIDs[i] = c.ID
	}

	responses := make([]models.RawResponse, len(e.invokers))
	g, gctx := errgroup.WithContext(ctx)
	for i, inv := range e.invokers {
		g.Go(func() error {
			e.ui.Info("Sending to %s...", inv.Name())
			ictx, cancel := context.WithTimeout(gctx, e.timeout)
			defer cancel()
			responses[i] = inv.Invoke(ictx, reviewPrompt, unitIDs)
			if responses[i].Failed() {
				e.ui.Warning("%s: %s", inv.Name(), responses[i].Err)
			} else {
				e.ui.VerboseLog("%s responded in %s", inv.Name(), responses[i].Elapsed.Round(time.Millisecond))
			}
			return nil
		})
	}
	// Join barrier: invocation errors are carried in-band, so Wait only
	// fails on context cancellation, which the parser degrades to
	// conservative defaults anyway.
	_ = g.Wait()

	run := &ReviewRun{Responses: make(map[string]models.RawResponse, len(responses))}
	verdictsByClaim := make(map[string][]models.ClaimVerdict, len(reviewClaims))
	for _, resp := range responses {
		run.Responses[resp.Backend] = resp
		verdicts, anomalies := parser.Claims(resp, reviewClaims)
		run.Anomalies = append(run.Anomalies, anomalies...)
		for _, v := range verdicts {
			verdictsByClaim[v.ClaimID] = append(verdictsByClaim[v.ClaimID], v)
		}
	}
	for _, a := range run.Anomalies {
		e.ui.Warning("parse anomaly: %s", a)
	}

	for _, c := range reviewClaims {
		res, err := aggregate.Claim(c.ID, verdictsByClaim[c.ID])
		if err != nil {
			return nil, err
		}
		run.Claims = append(run.Claims, res)
	}
	run.Gate = aggregate.Gate(run.Claims, nil)
	return run, nil
}

// RefRun is the outcome of one reference verification run.
type RefRun struct {
	Refs      []models.RefResult
	Gate      models.GateDecision
	Responses map[string]map[string]models.RawResponse // backend → ref key
	Anomalies []parser.Anomaly
}

// CheckRefs verifies each reference with every backend using per-reference
// prompts. Each backend×reference pair is an independent unit of work.
// resolvedByKey carries pipeline resolutions (may be nil when no fetch was
// run); a tier=none resolution weighs on the existence aggregate.
func (e *Engine) CheckRefs(ctx context.Context, references []models.Reference, resolvedByKey map[string]*models.ResolvedReference) (*RefRun, error) {
	if len(references) == 0 {
		return nil, errors.New("no references to check")
	}

	type cell struct {
		backend string
		refKey  string
		resp    models.RawResponse
	}

	var mu sync.Mutex
	var cells []cell

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refConcurrency)
	for _, inv := range e.invokers {
		for _, ref := range references {
			g.Go(func() error {
				e.ui.VerboseLog("%s: [%s]...", inv.Name(), ref.Key)
				ictx, cancel := context.WithTimeout(gctx, e.timeout)
				defer cancel()
				resp := inv.Invoke(ictx, prompt.Reference(ref), []string{ref.Key})
				mu.Lock()
				cells = append(cells, cell{inv.Name(), ref.Key, resp})
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	run := &RefRun{Responses: make(map[string]map[string]models.RawResponse)}
	verdictsByRef := make(map[string][]models.RefVerdict, len(references))
	for _, c := range cells {
		if run.Responses[c.backend] == nil {
			run.Responses[c.backend] = make(map[string]models.RawResponse)
		}
		run.Responses[c.backend][c.refKey] = c.resp
		v, anomalies := parser.RefChecks(c.resp, c.refKey)
		run.Anomalies = append(run.Anomalies, anomalies...)
		verdictsByRef[c.refKey] = append(verdictsByRef[c.refKey], v)
	}
	for _, a := range run.Anomalies {
		e.ui.Warning("parse anomaly: %s", a)
	}

	for _, ref := range references {
		res, err := aggregate.Ref(ref.Key, verdictsByRef[ref.Key], resolvedByKey[ref.Key])
		if err != nil {
			return nil, err
		}
		run.Refs = append(run.Refs, res)
	}
	run.Gate = aggregate.Gate(nil, run.Refs)
	return run, nil
}
