package dashboard

import (
	"io"
	"os"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// CatalogManifest is a YAML document that adds or overrides widget types
// and metric definitions.
type CatalogManifest struct {
	Version     string                 `json:"version" yaml:"version"`
	Name        string                 `json:"name,omitempty" yaml:"name,omitempty"`
	WidgetTypes []WidgetTypeDefinition `json:"widget_types,omitempty" yaml:"widget_types,omitempty"`
	Metrics     []MetricDefinition     `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Source      string                 `json:"-" yaml:"-"`
}

// LoadManifestFile reads a manifest from disk and applies it to the catalog.
func (c *Catalog) LoadManifestFile(path string) (*CatalogManifest, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyManifest(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifest decodes a manifest from r and applies it to the catalog.
func (c *Catalog) LoadManifest(r io.Reader) error {
	doc, err := DecodeManifest(r)
	if err != nil {
		return err
	}
	return c.ApplyManifest(doc)
}

// ApplyManifest registers every entry of a decoded manifest.
func (c *Catalog) ApplyManifest(doc *CatalogManifest) error {
	if doc == nil {
		return errors.New("manifest document is nil")
	}
	for _, def := range doc.WidgetTypes {
		if err := c.RegisterWidgetType(def); err != nil {
			return errors.Wrap(err, "register widget type", j.MKV{"type": def.Type, "source": doc.Source})
		}
	}
	for _, def := range doc.Metrics {
		if err := c.RegisterMetric(def); err != nil {
			return errors.Wrap(err, "register metric", j.MKV{"key": def.Key, "source": doc.Source})
		}
	}
	return nil
}

// WriteManifest exports the catalog's current definitions as YAML.
func (c *Catalog) WriteManifest(w io.Writer) error {
	doc := CatalogManifest{
		Version:     ManifestVersion,
		Name:        "mesh-dashboard",
		WidgetTypes: c.WidgetTypes(),
		Metrics:     c.Metrics(),
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	return enc.Close()
}

// ReadManifest loads a manifest file from disk without applying it.
func ReadManifest(path string) (*CatalogManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "open manifest", j.KV("path", path))
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, errors.Wrap(err, "decode manifest", j.KV("path", path))
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader. Unknown fields are rejected.
func DecodeManifest(r io.Reader) (*CatalogManifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc CatalogManifest
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, errors.Wrap(err, "parse manifest")
	}
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *CatalogManifest) Validate() error {
	if doc.Version != manifestVersionV1 {
		return errors.New("unsupported manifest version", j.KV("version", doc.Version))
	}
	seenTypes := make(map[WidgetType]struct{}, len(doc.WidgetTypes))
	for idx, def := range doc.WidgetTypes {
		if def.Type == "" {
			return errors.New("manifest widget type is missing type", j.KV("index", idx))
		}
		if _, dup := seenTypes[def.Type]; dup {
			return errors.New("manifest duplicates widget type", j.KV("type", def.Type))
		}
		seenTypes[def.Type] = struct{}{}
	}
	seenMetrics := make(map[string]struct{}, len(doc.Metrics))
	for idx, def := range doc.Metrics {
		if def.Key == "" {
			return errors.New("manifest metric is missing key", j.KV("index", idx))
		}
		if _, dup := seenMetrics[def.Key]; dup {
			return errors.New("manifest duplicates metric", j.KV("key", def.Key))
		}
		if def.Direction != "" && def.Direction != DirectionAbove && def.Direction != DirectionBelow {
			return errors.New("manifest metric has invalid direction", j.MKV{"key": def.Key, "direction": def.Direction})
		}
		seenMetrics[def.Key] = struct{}{}
	}
	return nil
}
