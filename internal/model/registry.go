package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// FinderName is reserved for the two-stage route and cannot name a model.
const FinderName = "finder"

var ErrUnknownModel = errors.New("unknown model")

type Manifest struct {
	Default string          `yaml:"default"`
	Models  []ModelManifest `yaml:"models"`
	Finder  *FinderManifest `yaml:"finder"`
}

type ModelManifest struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	// MetadataPath points at a JSON metadata file. Inline takes precedence.
	MetadataPath string    `yaml:"metadata"`
	Inline       *Metadata `yaml:"inline"`
}

// FinderManifest maps each class of the type model to the disease model
// that handles that plant.
type FinderManifest struct {
	Model  string                `yaml:"model"`
	Routes map[ClassLabel]string `yaml:"routes"`
}

// Opener turns a manifest entry into a live model.
type Opener func(name, path string, meta Metadata) (Model, error)

// OpenOnnxModel is the Opener used in production.
func OpenOnnxModel(name, path string, meta Metadata) (Model, error) {
	return OpenOnnx(name, path, meta)
}

// Registry holds every model for the life of the process. It is never
// mutated after construction.
type Registry struct {
	models       map[string]Model
	defaultModel string
	finder       *FinderManifest
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	base := filepath.Dir(path)
	for i := range m.Models {
		m.Models[i].Path = resolve(base, m.Models[i].Path)
		if m.Models[i].MetadataPath != "" {
			m.Models[i].MetadataPath = resolve(base, m.Models[i].MetadataPath)
		}
	}
	return &m, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return meta, nil
}

// LoadRegistry opens every model the manifest lists. Any failure closes what
// was already opened and is returned; the server must not start without
// its models.
func LoadRegistry(m *Manifest, open Opener) (*Registry, error) {
	var models []Model
	for _, entry := range m.Models {
		meta, err := entry.metadata()
		if err != nil {
			closeAll(models)
			return nil, fmt.Errorf("model %q: %w", entry.Name, err)
		}
		if _, err := os.Stat(entry.Path); err != nil {
			closeAll(models)
			return nil, fmt.Errorf("model %q: %w", entry.Name, err)
		}

		mdl, err := open(entry.Name, entry.Path, meta)
		if err != nil {
			closeAll(models)
			return nil, fmt.Errorf("model %q: %w", entry.Name, err)
		}
		models = append(models, mdl)
	}

	reg, err := NewRegistry(m.Default, m.Finder, models...)
	if err != nil {
		closeAll(models)
		return nil, err
	}
	return reg, nil
}

func (e ModelManifest) metadata() (Metadata, error) {
	var meta Metadata
	switch {
	case e.Inline != nil:
		meta = *e.Inline
	case e.MetadataPath != "":
		var err error
		if meta, err = readMetadata(e.MetadataPath); err != nil {
			return Metadata{}, err
		}
	default:
		return Metadata{}, errors.New("no metadata")
	}
	meta.ApplyDefaults()
	if err := meta.Validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata: %w", err)
	}
	return meta, nil
}

// NewRegistry validates and indexes already opened models. An empty
// defaultName selects the first model.
func NewRegistry(defaultName string, finder *FinderManifest, models ...Model) (*Registry, error) {
	if len(models) == 0 {
		return nil, errors.New("registry needs at least one model")
	}

	r := &Registry{models: make(map[string]Model, len(models)), finder: finder}
	for _, mdl := range models {
		name := mdl.Name()
		switch {
		case name == "":
			return nil, errors.New("model with empty name")
		case name == FinderName:
			return nil, fmt.Errorf("model name %q is reserved", FinderName)
		}
		if _, dup := r.models[name]; dup {
			return nil, fmt.Errorf("duplicate model %q", name)
		}
		r.models[name] = mdl
	}

	if defaultName == "" {
		defaultName = models[0].Name()
	}
	if _, ok := r.models[defaultName]; !ok {
		return nil, fmt.Errorf("default %w %q", ErrUnknownModel, defaultName)
	}
	r.defaultModel = defaultName

	if finder != nil {
		if err := r.validateFinder(); err != nil {
			return nil, fmt.Errorf("finder: %w", err)
		}
	}
	return r, nil
}

func (r *Registry) validateFinder() error {
	typeModel, ok := r.models[r.finder.Model]
	if !ok {
		return fmt.Errorf("type %w %q", ErrUnknownModel, r.finder.Model)
	}
	if len(r.finder.Routes) == 0 {
		return errors.New("no routes")
	}

	classes := make(map[ClassLabel]bool)
	for _, c := range typeModel.Metadata().Classes {
		classes[c] = true
	}
	for label, target := range r.finder.Routes {
		if !classes[label] {
			return fmt.Errorf("route label %q is not a class of %q", label, r.finder.Model)
		}
		if _, ok := r.models[target]; !ok {
			return fmt.Errorf("route %q: %w %q", label, ErrUnknownModel, target)
		}
	}
	return nil
}

func (r *Registry) Get(name string) (Model, error) {
	mdl, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	return mdl, nil
}

func (r *Registry) Default() string { return r.defaultModel }

// Names lists model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasFinder reports whether two-stage dispatch is configured.
func (r *Registry) HasFinder() bool { return r.finder != nil }

// FinderModel returns the plant type classifier.
func (r *Registry) FinderModel() (Model, error) {
	if r.finder == nil {
		return nil, errors.New("finder is not configured")
	}
	return r.Get(r.finder.Model)
}

// Route returns the disease model for a plant type label. ok is false when
// the type model produced a class that has no disease model.
func (r *Registry) Route(typeLabel ClassLabel) (Model, bool) {
	if r.finder == nil {
		return nil, false
	}
	target, ok := r.finder.Routes[typeLabel]
	if !ok {
		return nil, false
	}
	mdl, ok := r.models[target]
	return mdl, ok
}

func (r *Registry) Close() error {
	var errs []error
	for _, mdl := range r.models {
		if err := mdl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", mdl.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func closeAll(models []Model) {
	for _, mdl := range models {
		_ = mdl.Close()
	}
}
