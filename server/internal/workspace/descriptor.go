package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DescriptorFile = "workspace.yml"
	// DescriptorType marks a descriptor as a workspace.
	DescriptorType = "bruno-workspace"
	// DescriptorVersion is written into new descriptors.
	DescriptorVersion = "1"
	// CollectionsDir is where a workspace keeps its own collections.
	CollectionsDir = "collections"
)

var (
	ErrDescriptorNotFound = errors.New("workspace descriptor not found")
	ErrInvalidDescriptor  = errors.New("invalid workspace descriptor")
)

// Descriptor is the content of workspace.yml.
type Descriptor struct {
	Name        string          `yaml:"name" json:"name"`
	Type        string          `yaml:"type" json:"type"`
	Version     string          `yaml:"version" json:"version"`
	Docs        string          `yaml:"docs" json:"docs"`
	Collections []CollectionRef `yaml:"collections" json:"collections"`
}

func NewDescriptor(name string) *Descriptor {
	return &Descriptor{
		Name:        name,
		Type:        DescriptorType,
		Version:     DescriptorVersion,
		Collections: []CollectionRef{},
	}
}

// ReadDescriptor loads and validates the descriptor of the workspace at dir.
func ReadDescriptor(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, DescriptorFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrDescriptorNotFound)
		}
		return nil, fmt.Errorf("read workspace descriptor: %w", err)
	}

	var d Descriptor
	if err = yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidDescriptor, err)
	}
	if d.Type != DescriptorType {
		return nil, fmt.Errorf("%s: %w: type is %q, expected %q", path, ErrInvalidDescriptor, d.Type, DescriptorType)
	}
	if d.Collections == nil {
		d.Collections = []CollectionRef{}
	}

	return &d, nil
}

// WriteDescriptor replaces the descriptor of the workspace at dir.
func WriteDescriptor(dir string, d *Descriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal workspace descriptor: %w", err)
	}

	tmp, err := os.CreateTemp(dir, DescriptorFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary workspace descriptor: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write workspace descriptor: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close workspace descriptor: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod workspace descriptor: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(dir, DescriptorFile)); err != nil {
		return fmt.Errorf("replace workspace descriptor: %w", err)
	}
	return nil
}
