package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	httpserver "github.com/fyrsmithlabs/genogram/internal/http"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// scoreBadge colors a score by urgency.
func scoreBadge(score, highPriority int) string {
	text := fmt.Sprintf("%3d", score)
	switch {
	case score >= highPriority:
		return errorStyle.Render(text)
	case score >= 60:
		return warningStyle.Render(text)
	default:
		return healthyStyle.Render(text)
	}
}

func renderAnalysis(a *patterns.Analysis, highPriority int) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Genogram Pattern Analysis"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s   %s %d   %s %d   %s %d\n",
		labelStyle.Render("Root:"), a.RootMemberID,
		labelStyle.Render("Members:"), a.Stats.Members,
		labelStyle.Render("Events:"), a.Stats.Events,
		labelStyle.Render("Generations:"), a.Stats.RootGenerationDepth,
	))

	if len(a.Patterns) == 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("No patterns detected."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s %d detected, %d high priority\n\n",
		labelStyle.Render("Patterns:"), len(a.Patterns), len(a.HighPriority)))

	for _, p := range a.Patterns {
		b.WriteString(renderPattern(p, highPriority))
		b.WriteString("\n")
	}

	if len(a.SuggestedContent) > 0 {
		b.WriteString(sectionStyle.Render("Suggested content"))
		b.WriteString("\n")
		for _, id := range a.SuggestedContent {
			b.WriteString("  • " + id + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderPattern(p patterns.Pattern, highPriority int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s %s\n",
		scoreBadge(p.Score, highPriority),
		sectionStyle.Render(p.Name),
		dimStyle.Render("("+string(p.Lineage)+")"),
	))
	b.WriteString(p.Description)

	if len(p.Evidence) > 0 {
		b.WriteString("\n\n" + labelStyle.Render("Evidence"))
		for _, e := range p.Evidence {
			b.WriteString("\n  • " + e.Description)
		}
	}
	if len(p.Recommendations) > 0 {
		b.WriteString("\n\n" + labelStyle.Render("Recommendations"))
		for _, r := range p.Recommendations {
			b.WriteString("\n  • " + r)
		}
	}
	if len(p.Unlocks) > 0 {
		b.WriteString("\n\n" + dimStyle.Render("Unlocks: "+strings.Join(p.Unlocks, ", ")))
	}

	return cardStyle.Render(b.String())
}

func renderRules(rules []patterns.RuleInfo) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Pattern Rules"))
	b.WriteString("\n\n")
	for _, r := range rules {
		b.WriteString(fmt.Sprintf("%s %s\n    %s\n",
			dimStyle.Render(fmt.Sprintf("[%2d]", r.Priority)),
			sectionStyle.Render(r.ID),
			r.Description,
		))
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d rules registered", len(rules))))
	return b.String()
}

func renderHealth(server string, h httpserver.HealthResponse) string {
	var status string
	switch h.Status {
	case "ok":
		status = healthyStyle.Render("✓ OK")
	case "degraded":
		status = warningStyle.Render("⚠ DEGRADED")
	default:
		status = errorStyle.Render("✗ " + strings.ToUpper(h.Status))
	}

	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Server:"), server),
		fmt.Sprintf("%s %s", labelStyle.Render("Server Status:"), status),
		fmt.Sprintf("%s %d", labelStyle.Render("Rules:"), h.Rules),
	}
	if h.Version != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Version:"), h.Version))
	}
	if h.Telemetry != nil {
		tel := healthyStyle.Render("healthy")
		if h.Telemetry.Degraded {
			tel = warningStyle.Render("degraded: " + strings.Join(h.Telemetry.Reasons, "; "))
		} else if !h.Telemetry.Healthy {
			tel = errorStyle.Render("unhealthy")
		}
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Telemetry:"), tel))
	}
	return strings.Join(lines, "\n")
}
