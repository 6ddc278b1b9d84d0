package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"canvas-agent/internal/model"
)

// LoadDocument reads a scene document from a YAML or JSON file. Objects
// without ids get fresh ones; a missing canvas size falls back to the given
// defaults.
func LoadDocument(path string, defaultWidth, defaultHeight float64) (model.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, err
	}
	return ParseDocument(b, defaultWidth, defaultHeight)
}

// ParseDocument decodes YAML (a superset of JSON) into a document. The YAML
// tree is re-encoded as JSON so the model's json tags stay authoritative.
func ParseDocument(b []byte, defaultWidth, defaultHeight float64) (model.Document, error) {
	var tree interface{}
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return model.Document{}, fmt.Errorf("parse scene: %w", err)
	}
	j, err := json.Marshal(tree)
	if err != nil {
		return model.Document{}, fmt.Errorf("encode scene: %w", err)
	}
	var doc model.Document
	if err := json.Unmarshal(j, &doc); err != nil {
		return model.Document{}, fmt.Errorf("decode scene: %w", err)
	}
	if doc.Width <= 0 {
		doc.Width = defaultWidth
	}
	if doc.Height <= 0 {
		doc.Height = defaultHeight
	}
	for i, o := range doc.Objects {
		if o == nil {
			return model.Document{}, fmt.Errorf("object %d is empty", i)
		}
		if _, ok := model.SupportedObjectTypes[o.Type]; !ok {
			return model.Document{}, fmt.Errorf("object %d: unsupported type %q", i, o.Type)
		}
	}
	// Re-adding through a Memory scene assigns ids and resolves collisions.
	m := FromDocument(doc)
	m.ToDocument(&doc)
	return doc, nil
}
