// Package constraint loads the organization-wide constraint set. Constraints
// apply to every decision; the set is immutable at runtime and identified by
// the hash of its file contents.
package constraint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Constraint is one organization-wide rule.
type Constraint struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Type        string `yaml:"type" json:"type"`
	Immutable   bool   `yaml:"immutable" json:"immutable"`
}

// Set is the full constraint file.
type Set struct {
	Version     string       `yaml:"version" json:"version"`
	Constraints []Constraint `yaml:"constraints" json:"constraints"`
}

// Loaded pairs a parsed set with the content hash of its raw bytes.
type Loaded struct {
	Set  Set
	Hash string
}

// Load reads and validates a YAML constraint set.
func Load(path string) (Loaded, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return Loaded{}, fmt.Errorf("parse constraint set: %w", err)
	}
	if err := validate(set); err != nil {
		return Loaded{}, err
	}

	sum := sha256.Sum256(data)
	return Loaded{Set: set, Hash: "sha256:" + hex.EncodeToString(sum[:])}, nil
}

func validate(set Set) error {
	seen := map[string]bool{}
	for i, c := range set.Constraints {
		if c.Name == "" {
			return fmt.Errorf("constraint %d: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("constraint %q appears twice", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// ByName returns the named constraint from the set.
func (l Loaded) ByName(name string) (Constraint, bool) {
	for _, c := range l.Set.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}
