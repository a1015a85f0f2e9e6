package deseq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"godeseq/ports"
)

// Save persists a fitted model as JSON. The file is written to a
// temporary sibling and renamed into place so a failed write never
// leaves a truncated model behind.
func (e *Engine) Save(fm ports.FittedModel, path string) error {
	m, err := concrete(fm)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fitted model: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary model file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write fitted model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write fitted model: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist fitted model to %s: %w", path, err)
	}
	return nil
}

// Load restores a model persisted by Save
func (e *Engine) Load(path string) (ports.FittedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fitted model from %s: %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode fitted model %s: %w", path, err)
	}
	return &m, nil
}
