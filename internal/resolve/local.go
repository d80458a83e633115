package resolve

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
)

// localTextLimit caps extracted text at roughly 2000 words.
const localTextLimit = 8000

var localExtensions = []string{".pdf", ".txt", ".md"}

var (
	nonWordRe   = regexp.MustCompile(`[^\w\s]`)
	separatorRe = regexp.MustCompile(`[_\-]`)
)

// PaperStore is the local paper tier: a directory of previously downloaded
// or hand-placed papers, matched by citation key or fuzzy title. It also
// receives open-access downloads from later tiers.
type PaperStore struct {
	Dir string
	ui  *output.UI
}

// NewPaperStore creates a paper store rooted at dir.
func NewPaperStore(dir string, ui *output.UI) *PaperStore {
	return &PaperStore{Dir: dir, ui: ui}
}

func (s *PaperStore) Name() models.Tier { return models.TierLocal }

// Lookup finds a local file for the reference and extracts its text.
func (s *PaperStore) Lookup(ctx context.Context, ref models.Reference) (*models.ResolvedReference, error) {
	path := s.matchFile(ref)
	if path == "" {
		return nil, nil
	}
	text := s.extractText(ctx, path)
	if text == "" {
		return nil, nil
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &models.ResolvedReference{
		Tier: models.TierLocal,
		Meta: models.PaperMeta{Title: stem, Abstract: text},
	}, nil
}

// UpgradeWithFullText downloads the open-access document for a resolved
// reference and replaces the abstract with extracted full text, so the
// models see the complete paper. Best-effort: any failure leaves the
// abstract-only metadata in place.
func (s *PaperStore) UpgradeWithFullText(ctx context.Context, ref models.Reference, res *models.ResolvedReference) {
	if res.Meta.OpenAccessURL == "" {
		return
	}
	dest := filepath.Join(s.Dir, ref.Key+".pdf")
	if err := s.download(ctx, res.Meta.OpenAccessURL, dest); err != nil {
		s.ui.VerboseLog("[%s] download failed: %v", ref.Key, err)
		return
	}
	text := s.extractText(ctx, dest)
	if text == "" {
		return
	}
	s.ui.Info("Downloaded %s (%d chars)", filepath.Base(dest), len(text))
	res.Meta.Abstract = text
}

func (s *PaperStore) download(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	data, err := fetchURL(ctx, url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}

// matchFile finds a local paper for this reference: exact key match first
// (e.g. Kesten1959.pdf), then fuzzy title match against file stems.
func (s *PaperStore) matchFile(ref models.Reference) string {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return ""
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, allowed := range localExtensions {
			if ext == allowed {
				files = append(files, e.Name())
				break
			}
		}
	}

	for _, ext := range localExtensions {
		for _, f := range files {
			if strings.EqualFold(f, ref.Key+ext) {
				return filepath.Join(s.Dir, f)
			}
		}
	}

	title := extractTitle(ref.EntryText)
	if title == "" {
		return ""
	}
	cleaned := nonWordRe.ReplaceAllString(title, "")

	best := ""
	bestScore := 0.0
	for _, f := range files {
		stem := strings.TrimSuffix(f, filepath.Ext(f))
		stemWords := separatorRe.ReplaceAllString(stem, " ")
		if score := titleSimilarity(cleaned, stemWords); score > bestScore {
			bestScore = score
			best = f
		}
	}
	if bestScore >= matchThreshold {
		return filepath.Join(s.Dir, best)
	}
	return ""
}

// extractText reads a paper file's text, truncated to localTextLimit.
// PDFs go through the pdftotext CLI when it is installed; without it PDF
// files are skipped.
func (s *PaperStore) extractText(ctx context.Context, path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return truncate(string(data), localTextLimit)
	case ".pdf":
		if _, err := exec.LookPath("pdftotext"); err != nil {
			s.ui.VerboseLog("pdftotext not installed, skipping %s", filepath.Base(path))
			return ""
		}
		out, err := exec.CommandContext(ctx, "pdftotext", path, "-").Output()
		if err != nil {
			s.ui.VerboseLog("pdftotext %s: %v", filepath.Base(path), err)
			return ""
		}
		return truncate(string(out), localTextLimit)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
