package watch

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

// ContentHash returns the hex BLAKE3 digest of content.
func ContentHash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DecodeModel decodes a model stored as YAML when path has a .yaml or .yml extension
// and as JSON otherwise.
func DecodeModel(path string, data []byte) (*graph.Model, error) {
	m := graph.New()
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, m)
	} else {
		err = json.Unmarshal(data, m)
	}
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", filepath.Base(path), err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// EncodeModel is the inverse of DecodeModel.
func EncodeModel(path string, m *graph.Model) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(m)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadModel loads a model file.
func ReadModel(path string) (*graph.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeModel(path, data)
}

// WriteModel stores m at path.
func WriteModel(path string, m *graph.Model) error {
	data, err := EncodeModel(path, m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
