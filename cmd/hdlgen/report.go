package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/robert-at-pretension-io/hdlgen/internal/generator"
)

type styles struct {
	heading lipgloss.Style
	err     lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	ok      lipgloss.Style
	dim     lipgloss.Style
}

// newStyles returns colored styles for a terminal and plain ones otherwise
func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166")),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

func (s styles) section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", s.heading.Render("=== "+title+" ==="))
}

func (s styles) status(status string) string {
	switch status {
	case generator.StatusGenerated:
		return s.ok.Render(status)
	case generator.StatusFailed:
		return s.err.Render(status)
	}
	return s.dim.Render(status)
}

func printReport(w io.Writer, r *generator.Result, s styles) {
	s.section(w, "Designs")
	for _, d := range r.Designs {
		name := d.Design
		if name == "" {
			name = filepath.Base(d.Source)
		}
		line := fmt.Sprintf("  %-24s %s", name, s.status(d.Status))
		if d.Output != "" {
			line += " " + s.dim.Render("-> "+d.Output)
		}
		if d.Preserved {
			line += s.dim.Render(" (implementation kept)")
		}
		fmt.Fprintln(w, line)
		if d.Error != "" {
			fmt.Fprintf(w, "    %s\n", s.err.Render(d.Error))
		}
	}

	if len(r.Violations) > 0 {
		s.section(w, "Netlist Violations")
		for _, v := range r.Violations {
			icon := s.info.Render("ℹ")
			switch v.Severity {
			case "error":
				icon = s.err.Render("✗")
			case "warning":
				icon = s.warning.Render("⚠")
			}
			fmt.Fprintf(w, "%s [%s] %s - %s\n", icon, v.Rule, v.Design, v.Message)
		}
	}

	s.section(w, "Summary")
	fmt.Fprintf(w, "  Designs:   %d (%d generated, %d unchanged, %d cached, %d failed)\n",
		r.Summary.Designs, r.Summary.Generated, r.Summary.Unchanged, r.Summary.Cached, r.Summary.Failed)
	fmt.Fprintf(w, "  Errors:    %d\n", r.Summary.Errors)
	fmt.Fprintf(w, "  Warnings:  %d\n", r.Summary.Warnings)
	fmt.Fprintf(w, "  Info:      %d\n", r.Summary.Info)
}
