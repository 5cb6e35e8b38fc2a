package flow

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/flowkit/errors"
)

// Loader loads flow definitions by name.
type Loader interface {
	Load(name string) (*Definition, error)
}

// FileLoader loads definitions from YAML files under a set of directories.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load returns the definition named name. It tries {dir}/{name}.yaml and
// {dir}/{name}.yml first, then any file in the directory tree whose
// definition carries that name.
func (l *FileLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			if def, err := LoadDefinition(filepath.Join(dir, name+ext)); err == nil {
				return def, nil
			}
		}
	}

	defs, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if def.Name == name {
			return def, nil
		}
	}
	return nil, errors.NotFound("flow", name)
}

// LoadAll parses every .yaml and .yml file under the loader's directories.
// A file that fails to parse fails the whole load.
func (l *FileLoader) LoadAll() ([]*Definition, error) {
	var defs []*Definition
	for _, dir := range l.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isYAML(path) {
				return nil
			}
			def, err := LoadDefinition(path)
			if err != nil {
				return err
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("flow: loading definitions from %s: %w", dir, err)
		}
	}
	return defs, nil
}

// LoadDefinition reads and parses one definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("flow: parsing %s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes a YAML definition. Unknown keys are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
