package cmd

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptd/internal/knowledge"
)

var (
	colorPrimary = lipgloss.Color("#8B5CF6")
	colorGood    = lipgloss.Color("#22C55E")
	colorWarn    = lipgloss.Color("#F97316")
	colorBad     = lipgloss.Color("#F43F5E")
	colorDim     = lipgloss.Color("#94A3B8")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	nameStyle  = lipgloss.NewStyle().Bold(true)
)

const barWidth = 20

func statusStyle(s knowledge.Status) lipgloss.Style {
	switch s {
	case knowledge.StatusMastered:
		return lipgloss.NewStyle().Foreground(colorGood)
	case knowledge.StatusLearning:
		return lipgloss.NewStyle().Foreground(colorWarn)
	case knowledge.StatusNeedsWork:
		return lipgloss.NewStyle().Foreground(colorBad)
	default:
		return dimStyle
	}
}

// masteryBar renders mastery as a fixed-width bar followed by the percentage.
func masteryBar(mastery int, status knowledge.Status) string {
	filled := mastery * barWidth / knowledge.MaxMastery
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return statusStyle(status).Render(bar) + fmt.Sprintf(" %3d%%", mastery)
}

// renderTree writes the subtree rooted at n, one line per node.
func renderTree(b *strings.Builder, n *knowledge.Node, prefix string, last, root bool) {
	branch, childPrefix := "", ""
	if !root {
		branch = "├── "
		childPrefix = prefix + "│   "
		if last {
			branch = "└── "
			childPrefix = prefix + "    "
		}
	}

	label := nameStyle.Render(n.Name) + dimStyle.Render(" ("+n.ID+")")
	fmt.Fprintf(b, "%s%s%s  %s  %s\n", prefix, branch, label,
		masteryBar(n.Mastery, n.Status), statusStyle(n.Status).Render(string(n.Status)))

	for i, c := range n.Children {
		renderTree(b, c, childPrefix, i == len(n.Children)-1, false)
	}
}
