// Package loader provides knowledge-base loading adapters.
// Adapters implement ports.KnowledgeSource over YAML and JSON files and the embedded default set.
package loader

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

//go:embed default.yaml
var defaultKnowledge []byte

// knowledgeFile is the mapping form of a knowledge file: `entries: [...]`.
// A bare list of entries is accepted too.
type knowledgeFile struct {
	Entries []entities.Entry `yaml:"entries" json:"entries"`
}

// YAMLLoader loads entries from a .yaml/.yml file.
type YAMLLoader struct {
	path string
}

// NewYAMLLoader creates a loader for a YAML knowledge file.
func NewYAMLLoader(path string) *YAMLLoader {
	return &YAMLLoader{path: path}
}

// Load reads and decodes the file.
func (l *YAMLLoader) Load(ctx context.Context) ([]entities.Entry, error) {
	data, err := readFile(ctx, l.path)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeYAML(data)
	if err != nil {
		return nil, &entities.LoadError{Source: l.path, Err: err}
	}
	return entries, nil
}

// Describe returns the file path.
func (l *YAMLLoader) Describe() string {
	return l.path
}

// JSONLoader loads entries from a .json file.
type JSONLoader struct {
	path string
}

// NewJSONLoader creates a loader for a JSON knowledge file.
func NewJSONLoader(path string) *JSONLoader {
	return &JSONLoader{path: path}
}

// Load reads and decodes the file.
func (l *JSONLoader) Load(ctx context.Context) ([]entities.Entry, error) {
	data, err := readFile(ctx, l.path)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeJSON(data)
	if err != nil {
		return nil, &entities.LoadError{Source: l.path, Err: err}
	}
	return entries, nil
}

// Describe returns the file path.
func (l *JSONLoader) Describe() string {
	return l.path
}

// EmbeddedLoader serves the knowledge base compiled into the binary.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates the default knowledge source.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// Load decodes the embedded default set.
func (l *EmbeddedLoader) Load(ctx context.Context) ([]entities.Entry, error) {
	entries, err := DecodeYAML(defaultKnowledge)
	if err != nil {
		return nil, &entities.LoadError{Source: l.Describe(), Err: err}
	}
	return entries, nil
}

// Describe names the embedded source.
func (l *EmbeddedLoader) Describe() string {
	return "embedded"
}

// ForPath picks a loader by extension; an empty path selects the embedded set.
// Unknown extensions are read as YAML, which also accepts JSON documents.
func ForPath(path string) ports.KnowledgeSource {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewEmbeddedLoader()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONLoader(path)
	default:
		return NewYAMLLoader(path)
	}
}

// DecodeYAML decodes either `entries: [...]` or a bare list, rejecting unknown fields.
func DecodeYAML(data []byte) ([]entities.Entry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty document")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if root.Content[0].Kind == yaml.SequenceNode {
		var entries []entities.Entry
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decoding entries: %w", err)
		}
		return entries, nil
	}

	var doc knowledgeFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding entries: %w", err)
	}
	return doc.Entries, nil
}

// DecodeJSON decodes either {"entries": [...]} or a bare array, rejecting unknown fields.
func DecodeJSON(data []byte) ([]entities.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	if trimmed[0] == '[' {
		var entries []entities.Entry
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decoding entries: %w", err)
		}
		return entries, nil
	}

	var doc knowledgeFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding entries: %w", err)
	}
	return doc.Entries, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &entities.LoadError{Source: path, Err: err}
	}
	return data, nil
}
