package dashboard

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ChartHourOptions are the lookback windows offered by chart widgets.
var ChartHourOptions = []int{6, 12, 24, 48, 168}

// DefaultChartHours is the lookback used when a chart widget has none set.
const DefaultChartHours = 24

// SpecValidator validates a widget spec against its type definition.
type SpecValidator interface {
	Validate(def WidgetTypeDefinition, spec WidgetSpec) error
}

// JSONSchemaValidator derives a JSON schema from each widget type's
// cardinality rules, compiles it once and validates specs against it.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures the spec satisfies the schema for its widget type.
func (v *JSONSchemaValidator) Validate(def WidgetTypeDefinition, spec WidgetSpec) error {
	schema, err := v.schemaFor(def)
	if err != nil {
		return err
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return errors.Wrap(err, "marshal widget spec", j.KV("type", def.Type))
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.Wrap(err, "normalize widget spec", j.KV("type", def.Type))
	}
	if err := schema.Validate(payload); err != nil {
		return errors.Wrap(ErrValidation, "widget spec failed schema", j.MKV{
			"type":   def.Type,
			"reason": err.Error(),
		})
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(def WidgetTypeDefinition) (*jsonschema.Schema, error) {
	doc := WidgetSchema(def)
	key := string(def.Type) + ":" + configHash(doc)

	v.mu.RLock()
	schema, ok := v.compiled[key]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema", j.KV("type", def.Type))
	}
	compiler := jsonschema.NewCompiler()
	name := string(def.Type) + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, "load schema", j.KV("type", def.Type))
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, errors.Wrap(err, "compile schema", j.KV("type", def.Type))
	}
	v.mu.Lock()
	v.compiled[key] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// WidgetSchema returns the JSON schema for specs of the given widget type.
func WidgetSchema(def WidgetTypeDefinition) map[string]any {
	nodes := map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "string", "minLength": 1},
		"minItems": 1,
	}
	if def.Nodes == CardinalitySingle {
		nodes["maxItems"] = 1
	}
	metrics := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "minLength": 1},
	}
	required := []any{"type", "nodes"}
	switch def.Metrics {
	case CardinalitySingle:
		metrics["minItems"] = 1
		metrics["maxItems"] = 1
		required = append(required, "metrics")
	case CardinalityMulti:
		metrics["minItems"] = 1
		required = append(required, "metrics")
	case CardinalityAuto:
		metrics["maxItems"] = 0
	}
	modes := []any{string(DisplayDataPoints)}
	if def.Chartable {
		modes = append(modes, string(DisplayChart))
	}
	hours := make([]any, len(ChartHourOptions))
	for i, h := range ChartHourOptions {
		hours[i] = h
	}
	return map[string]any{
		"type":     "object",
		"required": required,
		"properties": map[string]any{
			"type":        map[string]any{"const": string(def.Type)},
			"title":       map[string]any{"type": "string", "maxLength": 120},
			"nodes":       nodes,
			"nodeNames":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"metrics":     metrics,
			"displayMode": map[string]any{"type": "string", "enum": modes},
			"chartHours":  map[string]any{"type": "integer", "enum": hours},
		},
	}
}

// validChartHours reports whether h is one of the offered lookbacks.
func validChartHours(h int) bool {
	for _, opt := range ChartHourOptions {
		if opt == h {
			return true
		}
	}
	return false
}

// prepareSpec normalizes a spec and validates it against the catalog. The
// returned spec is what gets stored on the widget.
func prepareSpec(catalog *Catalog, validator SpecValidator, spec WidgetSpec) (WidgetSpec, WidgetTypeDefinition, error) {
	if spec.Type == "" {
		return spec, WidgetTypeDefinition{}, errors.Wrap(ErrValidation, "widget type is required")
	}
	if spec.Type == legacyMultiMetricChart {
		spec.Type = WidgetMultiMetric
		spec.DisplayMode = DisplayChart
	}
	def, ok := catalog.WidgetType(spec.Type)
	if !ok {
		return spec, def, errors.Wrap(ErrValidation, "unknown widget type", j.KV("type", spec.Type))
	}
	if len(spec.Nodes) == 0 {
		return spec, def, errors.Wrap(ErrValidation, "select at least one node", j.KV("type", spec.Type))
	}
	if def.Metrics == CardinalityAuto {
		spec.Metrics = nil
	} else if len(spec.Metrics) == 0 {
		return spec, def, errors.Wrap(ErrValidation, "select at least one metric", j.KV("type", spec.Type))
	}
	if spec.DisplayMode == "" {
		spec.DisplayMode = DisplayDataPoints
	}
	if spec.DisplayMode == DisplayChart && spec.ChartHours == 0 {
		spec.ChartHours = DefaultChartHours
	}
	spec.NodeNames = alignNames(spec.Nodes, spec.NodeNames)

	if err := validator.Validate(def, spec); err != nil {
		return spec, def, err
	}
	for _, key := range spec.Metrics {
		if _, ok := catalog.Metric(key); !ok {
			return spec, def, errors.Wrap(ErrValidation, "unknown metric", j.KV("metric", key))
		}
	}
	return spec, def, nil
}

// alignNames keeps nodeNames parallel to nodes, falling back to the id.
func alignNames(nodes, names []string) []string {
	out := make([]string, len(nodes))
	for i, id := range nodes {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = id
		}
	}
	return out
}
