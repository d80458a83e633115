// Package mcp exposes the review engine as MCP tools so agent tooling can
// gate documents natively.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/reviewgate/internal/backend"
	"github.com/joescharf/reviewgate/internal/claims"
	"github.com/joescharf/reviewgate/internal/engine"
	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
	"github.com/joescharf/reviewgate/internal/prompt"
	"github.com/joescharf/reviewgate/internal/refs"
	"github.com/joescharf/reviewgate/internal/resolve"
)

// Config carries the dependencies the MCP tools need.
type Config struct {
	Registry backend.Registry
	APIKey   string
	Backends []string
	Timeout  time.Duration
	Pipeline *resolve.Pipeline
}

// Server wraps the review engine and exposes it as MCP tools.
type Server struct {
	cfg Config
	ui  *output.UI
}

// NewServer creates the MCP server wrapper. Progress output is suppressed;
// stdio belongs to the MCP transport.
func NewServer(cfg Config) *Server {
	ui := output.New()
	ui.Quiet = true
	return &Server{cfg: cfg, ui: ui}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("reviewgate", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.reviewGateTool())
	srv.AddTool(s.checkRefsTool())
	srv.AddTool(s.resolveReferenceTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) newEngine(modelsArg string) (*engine.Engine, error) {
	names := s.cfg.Backends
	if modelsArg != "" {
		names = nil
		for _, n := range strings.Split(modelsArg, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	var invokers []backend.Invoker
	for _, name := range names {
		inv, err := backend.New(s.cfg.Registry, name, s.cfg.APIKey)
		if err != nil {
			return nil, err
		}
		invokers = append(invokers, inv)
	}
	return engine.New(invokers, s.cfg.Timeout, s.ui)
}

// review_gate
func (s *Server) reviewGateTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_gate",
		mcp.WithDescription("Run a multi-model review gate on a document. Returns JSON with a PASS/BLOCK gate decision and per-claim verdicts with disagreements."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the document to review")),
		mcp.WithString("claims_file", mcp.Description("Path to a YAML claims file; defaults to inline [C:id] annotations in the document")),
		mcp.WithString("models", mcp.Description("Comma-separated backend names; defaults to the configured set")),
	)
	return tool, s.handleReviewGate
}

func (s *Server) handleReviewGate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := request.GetString("file", "")
	document, err := prompt.LoadDocument(file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var units []models.Claim
	if claimsFile := request.GetString("claims_file", ""); claimsFile != "" {
		units, err = claims.LoadFile(claimsFile)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		units = claims.Extract(document)
	}
	if len(units) == 0 {
		return mcp.NewToolResultError("no claims found: annotate the document with [C:id] markers or pass claims_file"), nil
	}

	eng, err := s.newEngine(request.GetString("models", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run, err := eng.RunReview(ctx, units, prompt.Review(document, "", nil))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}

	out := struct {
		Gate   models.GateDecision  `json:"gate"`
		Claims []models.ClaimResult `json:"claims"`
	}{run.Gate, run.Claims}
	return jsonResult(out)
}

// check_refs
func (s *Server) checkRefsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("check_refs",
		mcp.WithDescription("Verify each reference in a document independently across model backends. Returns JSON with per-reference verdicts and a PASS/BLOCK gate."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the document whose references to check")),
		mcp.WithBoolean("fetch", mcp.Description("Resolve reference metadata through the lookup pipeline first")),
		mcp.WithString("models", mcp.Description("Comma-separated backend names; defaults to the configured set")),
	)
	return tool, s.handleCheckRefs
}

func (s *Server) handleCheckRefs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := request.GetString("file", "")
	references, err := refs.Load(file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(references) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no references found in %s", file)), nil
	}

	resolvedByKey := map[string]*models.ResolvedReference{}
	if request.GetBool("fetch", false) && s.cfg.Pipeline != nil {
		for i := range references {
			res, err := s.cfg.Pipeline.Resolve(ctx, references[i])
			if err != nil {
				continue
			}
			references[i].FetchedContent = res.PromptText()
			resolvedByKey[references[i].Key] = &res
		}
	}

	eng, err := s.newEngine(request.GetString("models", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run, err := eng.CheckRefs(ctx, references, resolvedByKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reference check failed: %v", err)), nil
	}

	out := struct {
		Gate models.GateDecision `json:"gate"`
		Refs []models.RefResult  `json:"references"`
	}{run.Gate, run.Refs}
	return jsonResult(out)
}

// resolve_reference
func (s *Server) resolveReferenceTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("resolve_reference",
		mcp.WithDescription("Resolve one bibliographic entry to verified metadata through the tiered lookup pipeline (cache, local papers, arXiv, Semantic Scholar, CrossRef)."),
		mcp.WithString("entry_text", mcp.Required(), mcp.Description("The raw bibliography entry text")),
		mcp.WithString("key", mcp.Description("Citation key for the entry")),
	)
	return tool, s.handleResolveReference
}

func (s *Server) handleResolveReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Pipeline == nil {
		return mcp.NewToolResultError("resolution pipeline not configured"), nil
	}
	ref := models.Reference{
		Key:       request.GetString("key", "ref"),
		EntryText: request.GetString("entry_text", ""),
	}
	if ref.EntryText == "" {
		return mcp.NewToolResultError("entry_text is required"), nil
	}

	res, err := s.cfg.Pipeline.Resolve(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolution failed: %v", err)), nil
	}
	return jsonResult(res)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
