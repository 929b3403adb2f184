package output

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used by the renderers.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Category map[string]lipgloss.Style
}

// NewStyles builds the styles on a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Category: map[string]lipgloss.Style{
			"filter":      r.NewStyle().Foreground(lipgloss.Color("13")),
			"groupByKeys": r.NewStyle().Foreground(lipgloss.Color("11")),
			"relation":    r.NewStyle().Foreground(lipgloss.Color("12")),
			"selectItems": r.NewStyle().Foreground(lipgloss.Color("10")),
			"sortings":    r.NewStyle().Foreground(lipgloss.Color("14")),
		},
	}
}

// CategoryStyle returns the style for an explanation category.
func (s *Styles) CategoryStyle(category string) lipgloss.Style {
	if st, ok := s.Category[category]; ok {
		return st
	}
	return s.Bold
}
