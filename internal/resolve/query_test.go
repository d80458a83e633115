package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"latex textit", `Smith, J. \textit{A Grand Theory of Everything}. 2020.`, "A Grand Theory of Everything"},
		{"latex emph", `Smith, J. \emph{A Grand Theory of Everything}, 2020.`, "A Grand Theory of Everything"},
		{"em group", `Smith, J. {\em A Grand Theory of Everything}, 2020.`, "A Grand Theory of Everything"},
		{"tex double quotes", "Smith, J. ``A Grand Theory of Everything,'' 2020.", "A Grand Theory of Everything"},
		{"plain quotes", `Smith, J. "A Grand Theory of Everything," 2020.`, "A Grand Theory of Everything"},
		{"journal name rejected", `Smith, J. \textit{Phys. Rev. Lett.} 42, 2020.`, ""},
		{"nothing quoted", `Smith, J. A paper without markup. 2020.`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle(tt.entry))
		})
	}
}

func TestExtractFirstAuthor(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"surname first", `Knuth, D. E. The Art of Computer Programming.`, "Knuth"},
		{"initials first", `D. E. Knuth, The Art of Computer Programming.`, "Knuth"},
		{"full name", `Donald Knuth, The Art of Computer Programming.`, "Knuth"},
		{"bibitem stripped", `\bibitem{knuth1968} Knuth, D. E. The Art.`, "Knuth"},
		{"leading number stripped", `[3] Knuth, D. E. The Art.`, "Knuth"},
		{"no author found", `the art of computer programming`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractFirstAuthor(tt.entry))
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"new style", "Vaswani et al., arXiv:1706.03762, 2017.", "1706.03762"},
		{"with version", "Vaswani et al., arXiv:1706.03762v5, 2017.", "1706.03762v5"},
		{"space separator", "Preprint arXiv 2303.08774.", "2303.08774"},
		{"old style", "Maldacena, arXiv:hep-th/9711200.", "hep-th/9711200"},
		{"abs url", "https://arxiv.org/abs/1706.03762", "1706.03762"},
		{"none", "Smith, A Paper, 2020.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArxivID(tt.entry))
		})
	}
}

func TestSearchQuery(t *testing.T) {
	t.Run("title plus author", func(t *testing.T) {
		q := searchQuery(`Knuth, D. E. "The Art of Computer Programming," 1968.`)
		assert.Equal(t, "The Art of Computer Programming Knuth", q)
	})

	t.Run("falls back to cleaned entry", func(t *testing.T) {
		q := searchQuery(`\textbf{some} raw entry without title or author markers`)
		assert.Equal(t, "some raw entry without title or author markers", q)
	})

	t.Run("fallback truncated", func(t *testing.T) {
		long := ""
		for i := 0; i < 30; i++ {
			long += "verylongword "
		}
		assert.LessOrEqual(t, len(searchQuery(long)), 120)
	})
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, titleSimilarity("Deep Learning", "deep learning"))
	assert.Equal(t, 0.0, titleSimilarity("Deep Learning", "Quantum Chromodynamics"))
	assert.Equal(t, 0.0, titleSimilarity("", "anything"))

	// Half the words shared, Jaccard 2/6.
	sim := titleSimilarity("attention is all you", "attention is bells whistles")
	assert.InDelta(t, 1.0/3.0, sim, 0.001)
}
