package dashboard

import (
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/types"
)

// ThemeSelection carries the resolved theme: CSS tokens for the status
// classes and the chart theme name.
type ThemeSelection struct {
	Name       string            `json:"name"`
	Variant    string            `json:"variant"`
	Tokens     map[string]string `json:"tokens,omitempty"`
	ChartTheme string            `json:"chart_theme"`
}

// DefaultTheme returns the built-in light or dark theme.
func DefaultTheme(variant string) *ThemeSelection {
	if variant == "dark" {
		return &ThemeSelection{
			Name:    "mesh",
			Variant: "dark",
			Tokens: map[string]string{
				"status-good":    "#4ade80",
				"status-warning": "#facc15",
				"status-danger":  "#f87171",
				"widget-bg":      "#1f2937",
			},
			ChartTheme: types.ThemeChalk,
		}
	}
	return &ThemeSelection{
		Name:    "mesh",
		Variant: "light",
		Tokens: map[string]string{
			"status-good":    "#16a34a",
			"status-warning": "#ca8a04",
			"status-danger":  "#dc2626",
			"widget-bg":      "#ffffff",
		},
		ChartTheme: types.ThemeWesteros,
	}
}

// StatusToken returns the color token for a status class.
func (theme *ThemeSelection) StatusToken(status Status) string {
	if theme == nil || status == StatusNone {
		return ""
	}
	return theme.Tokens["status-"+string(status)]
}

// CSSVariables normalizes token keys into CSS variable names.
func (theme *ThemeSelection) CSSVariables() map[string]string {
	if theme == nil || len(theme.Tokens) == 0 {
		return nil
	}
	vars := make(map[string]string, len(theme.Tokens))
	for key, value := range theme.Tokens {
		if name := normalizeCSSVariable(key); name != "" {
			vars[name] = value
		}
	}
	return vars
}

// CSSVariablesInline renders the CSS variables as a style attribute, in
// name order.
func (theme *ThemeSelection) CSSVariablesInline() string {
	vars := theme.CSSVariables()
	if len(vars) == 0 {
		return ""
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	var builder strings.Builder
	for _, name := range names {
		if vars[name] == "" {
			continue
		}
		builder.WriteString(name)
		builder.WriteString(": ")
		builder.WriteString(vars[name])
		builder.WriteString("; ")
	}
	return strings.TrimSpace(builder.String())
}

func normalizeCSSVariable(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "--") {
		return name
	}
	return "--" + name
}
