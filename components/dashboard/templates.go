package dashboard

import (
	"embed"
	"encoding/json"
	"io"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// TemplateRenderer renders a named template into HTML.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// NewTemplateRenderer creates a go-template renderer backed by the embedded widget templates.
func NewTemplateRenderer() (TemplateRenderer, error) {
	return template.NewRenderer(
		template.WithFS(embeddedTemplates),
		template.WithBaseDir("templates"),
		template.WithExtension(".html"),
	)
}

// viewTemplate picks the template for a widget body. Error and no-data
// bodies share one template unless they still carry the chart selector.
func viewTemplate(view WidgetView) string {
	switch {
	case view.Chart != nil:
		return "widget_chart"
	case view.State != ViewOK:
		return "widget_empty"
	}
	switch view.Type {
	case WidgetNodeStatus:
		return "widget_node_status"
	case WidgetMultiNodeCompare:
		return "widget_compare"
	default:
		return "widget_metrics"
	}
}

// templateData exposes the view to templates under its JSON field names.
func templateData(view WidgetView, theme *ThemeSelection) (map[string]any, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return map[string]any{
		"view":  fields,
		"style": theme.CSSVariablesInline(),
	}, nil
}
