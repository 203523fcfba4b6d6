package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/janisto/lostcat/internal/photo"
	"github.com/janisto/lostcat/internal/wizard"
)

// ErrIncomplete is returned when the profile cannot leave the details step.
var ErrIncomplete = errors.New("profile is incomplete")

// profileFile is the on-disk profile. Photo is a path relative to the file.
type profileFile struct {
	Name            string   `yaml:"name"`
	Breed           string   `yaml:"breed"`
	Color           string   `yaml:"color"`
	LastSeenAddress string   `yaml:"lastSeenAddress"`
	LastSeenDate    string   `yaml:"lastSeenDate"`
	OwnerName       string   `yaml:"ownerName"`
	Phone           string   `yaml:"phone"`
	Description     string   `yaml:"description"`
	Features        []string `yaml:"features"`
	Photo           string   `yaml:"photo"`
}

func (f profileFile) fields() map[wizard.Field]string {
	return map[wizard.Field]string{
		wizard.FieldName:            f.Name,
		wizard.FieldBreed:           f.Breed,
		wizard.FieldColor:           f.Color,
		wizard.FieldLastSeenAddress: f.LastSeenAddress,
		wizard.FieldLastSeenDate:    f.LastSeenDate,
		wizard.FieldOwnerName:       f.OwnerName,
		wizard.FieldPhone:           f.Phone,
		wizard.FieldDescription:     f.Description,
	}
}

func readProfileFile(path string) (profileFile, error) {
	var f profileFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return f, nil
}

// replay walks a fresh wizard through the file the way a user would and
// returns the state reached. With toPreview the walk must end at Preview.
func replay(ctx context.Context, path string, loader *photo.Loader, now time.Time, toPreview bool) (wizard.State, error) {
	f, err := readProfileFile(path)
	if err != nil {
		return wizard.State{}, err
	}

	m := wizard.NewMachine(now)
	m.Start()
	for _, field := range wizard.Fields {
		v := f.fields()[field]
		if v == "" {
			continue
		}
		if field == wizard.FieldLastSeenDate && !wizard.ValidDate(v) {
			return wizard.State{}, fmt.Errorf("lastSeenDate %q: want YYYY-MM-DD", v)
		}
		m.UpdateField(field, v)
	}
	for _, feature := range f.Features {
		m.AddFeature(feature)
	}

	if !toPreview {
		return m.State(), nil
	}
	if !m.Advance() {
		return wizard.State{}, fmt.Errorf("%w: missing %s", ErrIncomplete, joinFields(m.Missing()))
	}

	if f.Photo != "" {
		p, err := loadPhoto(ctx, loader, resolve(path, f.Photo))
		if err != nil {
			return wizard.State{}, err
		}
		m.SetPhoto(p)
	}
	m.Advance()
	return m.State(), nil
}

func loadPhoto(ctx context.Context, loader *photo.Loader, path string) (*wizard.Photo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer file.Close()
	p, err := loader.Load(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("photo %s: %w", path, err)
	}
	return p, nil
}

// resolve interprets rel relative to the directory of the profile file.
func resolve(profilePath, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(filepath.Dir(profilePath), rel)
}

func joinFields(fields []wizard.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// writeDescription sets the description key of the YAML file in place,
// keeping the rest of the document and its comments.
func writeDescription(path, description string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse profile %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("profile %s: expected a mapping", path)
	}
	root := doc.Content[0]

	value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: description}
	replaced := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == string(wizard.FieldDescription) {
			root.Content[i+1] = value
			replaced = true
			break
		}
	}
	if !replaced {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(wizard.FieldDescription)},
			value,
		)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, info.Mode().Perm())
}
