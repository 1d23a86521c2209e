package statistics

import (
	"fmt"
	"strconv"
	"strings"

	"organoidcli/pkg/contracts/domain"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// AnovaText renders the F and p values followed by the Tukey table.
func AnovaText(res *domain.AnovaResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "F value: %s\n", formatFloat(res.F))
	fmt.Fprintf(&b, "P value: %s\n\n", formatFloat(res.PValue))
	b.WriteString(TukeyTable(res))
	return b.String()
}

// TukeyTable renders the pairwise comparisons as a fixed-width table.
func TukeyTable(res *domain.AnovaResult) string {
	header := []string{"group1", "group2", "meandiff", "p-adj", "lower", "upper", "reject"}
	rows := make([][]string, 0, len(res.Comparisons))
	for _, c := range res.Comparisons {
		rows = append(rows, []string{
			c.GroupA,
			c.GroupB,
			fmt.Sprintf("%.4f", c.MeanDiff),
			fmt.Sprintf("%.4f", c.PAdj),
			fmt.Sprintf("%.4f", c.Lower),
			fmt.Sprintf("%.4f", c.Upper),
			strconv.FormatBool(c.Reject),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	lineWidth := len(header) - 1
	for _, w := range widths {
		lineWidth += w
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Multiple Comparison of Means - Tukey HSD, FWER=%.2f\n", res.Alpha)
	b.WriteString(strings.Repeat("=", lineWidth) + "\n")
	writeRow(&b, header, widths)
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
	for _, r := range rows {
		writeRow(&b, r, widths)
	}
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = fmt.Sprintf("%*s", widths[i], c)
	}
	b.WriteString(strings.Join(padded, " ") + "\n")
}

// KruskalText renders a Kruskal-Wallis result.
func KruskalText(res *domain.KruskalResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "H value: %s\n", formatFloat(res.H))
	fmt.Fprintf(&b, "P value: %s\n", formatFloat(res.PValue))
	fmt.Fprintf(&b, "Degrees of freedom: %d\n", res.DF)
	fmt.Fprintf(&b, "Groups: %s\n", strings.Join(res.Groups, ", "))
	return b.String()
}

// RegressionText renders a through-origin regression of y on x.
func RegressionText(yName, xName string, res *domain.RegressionResult) string {
	var b strings.Builder
	b.WriteString("Least squares regression through the origin\n")
	fmt.Fprintf(&b, "Dep. Variable: %s\n", yName)
	fmt.Fprintf(&b, "No. Observations: %d\n", res.N)
	fmt.Fprintf(&b, "R-squared (uncentered): %.3f\n\n", res.RSquared)
	fmt.Fprintf(&b, "%-12s %12s %12s %10s %10s\n", "", "coef", "std err", "t", "P>|t|")
	fmt.Fprintf(&b, "%-12s %12.4f %12.4f %10.3f %10.3f\n", xName, res.Slope, res.StdErr, res.T, res.PValue)
	return b.String()
}
