package report

import (
	"fmt"
	"io"
	"strings"
)

const (
	xmlHeader    = `<?xml version="1.0" encoding="utf-8"?>` + "\n"
	caseIndent   = "    "
	detailIndent = "        "
)

// WriteXML renders the suite as a JUnit-style XML document.
//
// Layout:
//
//	<?xml version="1.0" encoding="utf-8"?>
//	<testsuite name="KernelTests" tests="N" skips="0" errors="E" failures="F">
//	    <testcase classname="C" name="T">
//	        <error message="...">...</error>
//	        <failure message="...">...
//	File: <file>
//	Line: <line>
//	        </failure>
//	    </testcase>
//	</testsuite>
//
// Passing cases are self-closed, and a suite without cases is rendered as a
// single self-closed testsuite element. The suite is not modified.
func WriteXML(w io.Writer, s *TestSuite) error {
	var b strings.Builder
	c := s.Counts()

	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<testsuite name="%s" tests="%d" skips="%d" errors="%d" failures="%d"`,
		EscapeAttr(s.Name), c.Total, c.Skips, c.Errors, c.Failures)

	if len(s.Cases) == 0 {
		b.WriteString("/>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString(">\n")

	for _, tc := range s.Cases {
		writeCase(&b, tc)
	}
	b.WriteString("</testsuite>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCase(b *strings.Builder, tc *TestCase) {
	fmt.Fprintf(b, `%s<testcase classname="%s" name="%s"`,
		caseIndent, EscapeAttr(tc.ClassName), EscapeAttr(tc.Name))

	if tc.Passed() {
		b.WriteString("/>\n")
		return
	}
	b.WriteString(">\n")

	if tc.Error != nil {
		fmt.Fprintf(b, `%s<error message="%s">%s</error>`+"\n",
			detailIndent, EscapeAttr(tc.Error.Message), EscapeText(tc.Error.Message))
	}

	if f := tc.Failure; f != nil {
		fmt.Fprintf(b, `%s<failure message="%s">%s`,
			detailIndent, EscapeAttr(f.Message), EscapeText(f.Message))
		if f.Location != nil {
			fmt.Fprintf(b, "\nFile: %s\nLine: %d\n%s</failure>\n",
				EscapeText(f.Location.File), f.Location.Line, detailIndent)
		} else {
			b.WriteString("</failure>\n")
		}
	}

	fmt.Fprintf(b, "%s</testcase>\n", caseIndent)
}
