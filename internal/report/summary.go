package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// summaryStyles colours the status labels. Colours are only emitted when the
// destination writer is a terminal; buffers and files get plain text.
type summaryStyles struct {
	fail  lipgloss.Style
	err   lipgloss.Style
	tally lipgloss.Style
}

func newSummaryStyles(w io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(w)
	return summaryStyles{
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		err:   r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		tally: r.NewStyle().Faint(true),
	}
}

// WriteSummary writes one line per non-passing case followed by a tally:
//
//	FAIL: Alloc.alloc_oom (alloc.c:42): expected non-null
//	ERROR: Paging.map: page fault
//	Tests: 2, Failures: 1, Errors: 1
//
// A case that both failed and errored gets one line of each kind.
func WriteSummary(w io.Writer, s *TestSuite) error {
	st := newSummaryStyles(w)
	var b strings.Builder

	for _, tc := range s.NonPassing() {
		if f := tc.Failure; f != nil {
			b.WriteString(st.fail.Render("FAIL:"))
			b.WriteString(" " + tc.QualifiedName())
			if f.Location != nil {
				fmt.Fprintf(&b, " (%s)", f.Location)
			}
			fmt.Fprintf(&b, ": %s\n", f.Message)
		}
		if e := tc.Error; e != nil {
			b.WriteString(st.err.Render("ERROR:"))
			fmt.Fprintf(&b, " %s: %s\n", tc.QualifiedName(), e.Message)
		}
	}

	c := s.Counts()
	b.WriteString(st.tally.Render(fmt.Sprintf("Tests: %d, Failures: %d, Errors: %d", c.Total, c.Failures, c.Errors)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
