package validate

import (
	"fmt"
	"io"
	"strings"

	"github.com/granin/sample20calls/internal/schema"
)

var rule = strings.Repeat("=", 80)

// WriteReport writes the human-readable validation report. Graders are
// listed in the given order.
func WriteReport(w io.Writer, s schema.ValidationSummary, graders []string) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s\nGRADER VALIDATION REPORT - Ground Truth Comparison\n%s\n\n", rule, rule)

	for _, v := range s.Calls {
		fmt.Fprintf(&sb, "Call: %s\n", v.CallID)
		sb.WriteString("  Ground Truth:\n")
		fmt.Fprintf(&sb, "    9.1 (Long Search): %s\n", truth(v.GroundTruth, "9.1"))
		fmt.Fprintf(&sb, "    9.3 (Gratitude):   %s\n\n", truth(v.GroundTruth, "9.3"))

		sb.WriteString("  Grader Accuracy:\n")
		for _, name := range graders {
			cmp, ok := v.GraderAccuracy[name]
			if !ok || cmp.NoData {
				fmt.Fprintf(&sb, "    %s: NO DATA\n", strings.ToUpper(name))
				continue
			}
			fmt.Fprintf(&sb, "    %s: %s (%d/%d criteria match)\n",
				strings.ToUpper(name), cmp.OverallAccuracy, cmp.Correct, cmp.Total)
			for _, code := range Criteria {
				m, ok := cmp.Criteria[code]
				if !ok || m.Match == nil {
					continue
				}
				mark := "✗"
				if *m.Match {
					mark = "✓"
				}
				fmt.Fprintf(&sb, "      %s: %s (%s)\n", code, mark, m.GraderStatus)
			}
		}
		fmt.Fprintf(&sb, "\n%s\n\n", strings.Repeat("-", 80))
	}

	fmt.Fprintf(&sb, "%s\nSUMMARY\n%s\n\n", rule, rule)
	for _, name := range graders {
		tot := s.Graders[name]
		if tot.Total == 0 {
			fmt.Fprintf(&sb, "%s: No data\n", strings.ToUpper(name))
			continue
		}
		fmt.Fprintf(&sb, "%s: %.1f%% accuracy (%d/%d criteria)\n",
			strings.ToUpper(name), tot.Accuracy, tot.Correct, tot.Total)
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func truth(gt map[string]schema.NormalizedStatus, code string) string {
	if s, ok := gt[code]; ok {
		return string(s)
	}
	return "N/A"
}

// Names returns the grader names in order.
func Names(graders []Grader) []string {
	names := make([]string, len(graders))
	for i, g := range graders {
		names[i] = g.Name
	}
	return names
}
