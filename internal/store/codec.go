package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/weaver/pkg/types"
)

const frontmatterDelimiter = "---"

// frontmatter is the structured header of an entity record. System fields
// carry a "$" prefix to keep them visually separate from display fields in
// the file.
type frontmatter struct {
	ID            string                 `yaml:"$id"`
	Type          string                 `yaml:"$type"`
	Version       int                    `yaml:"$version"`
	Created       time.Time              `yaml:"$created"`
	Updated       time.Time              `yaml:"$updated"`
	Confidence    float64                `yaml:"$confidence"`
	Status        string                 `yaml:"$status,omitempty"`
	Relationships []types.Relationship   `yaml:"$relationships,omitempty"`
	Tags          []string               `yaml:"$tags,omitempty"`
	Aliases       []string               `yaml:"$aliases,omitempty"`
	Events        []types.Event          `yaml:"$events,omitempty"`
	Name          string                 `yaml:"name"`
	Description   string                 `yaml:"description,omitempty"`
}

// ParseRecord decodes one entity record (YAML frontmatter + markdown body).
// Unknown "_"-prefixed frontmatter keys are preserved in Entity.Extensions;
// other unknown keys are ignored. Returns ErrParse (wrapped) for records
// without a parseable header or without an $id.
func ParseRecord(data []byte) (*types.Entity, error) {
	header, body, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, err
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return nil, fmt.Errorf("%w: invalid frontmatter: %v", ErrParse, err)
	}
	if fm.ID == "" {
		return nil, fmt.Errorf("%w: record has no $id", ErrParse)
	}

	// Second decode into a raw map to pick up producer-specific "_" keys.
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(header), &raw); err == nil {
		var ext map[string]interface{}
		for key, value := range raw {
			if strings.HasPrefix(key, "_") {
				if ext == nil {
					ext = make(map[string]interface{})
				}
				ext[key] = value
			}
		}
		if ext != nil {
			fmExtensions := ext
			return assemble(&fm, body, fmExtensions), nil
		}
	}
	return assemble(&fm, body, nil), nil
}

func assemble(fm *frontmatter, body string, extensions map[string]interface{}) *types.Entity {
	return &types.Entity{
		ID:            fm.ID,
		Type:          fm.Type,
		Version:       fm.Version,
		Name:          fm.Name,
		Description:   fm.Description,
		Aliases:       fm.Aliases,
		Relationships: fm.Relationships,
		Confidence:    fm.Confidence,
		Status:        fm.Status,
		Tags:          fm.Tags,
		Events:        fm.Events,
		CreatedAt:     fm.Created,
		UpdatedAt:     fm.Updated,
		Body:          body,
		Extensions:    extensions,
	}
}

// EncodeRecord serializes an entity back to its file form. Extension keys
// are emitted after the known fields, in sorted order for stable output.
func EncodeRecord(e *types.Entity) ([]byte, error) {
	fm := frontmatter{
		ID:            e.ID,
		Type:          e.Type,
		Version:       e.Version,
		Created:       e.CreatedAt,
		Updated:       e.UpdatedAt,
		Confidence:    e.Confidence,
		Status:        e.Status,
		Relationships: e.Relationships,
		Tags:          e.Tags,
		Aliases:       e.Aliases,
		Events:        e.Events,
		Name:          e.Name,
		Description:   e.Description,
	}

	headerBytes, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	b.Write(headerBytes)

	if len(e.Extensions) > 0 {
		keys := make([]string, 0, len(e.Extensions))
		for k := range e.Extensions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			extBytes, err := yaml.Marshal(map[string]interface{}{k: e.Extensions[k]})
			if err != nil {
				return nil, fmt.Errorf("failed to marshal extension %q: %w", k, err)
			}
			b.Write(extBytes)
		}
	}

	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	if e.Body != "" {
		b.WriteString(e.Body)
		if !strings.HasSuffix(e.Body, "\n") {
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}

// splitFrontmatter separates the YAML header from the markdown body.
func splitFrontmatter(content string) (header, body string, err error) {
	trimmed := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") {
		return "", "", fmt.Errorf("%w: missing frontmatter delimiter", ErrParse)
	}

	rest := trimmed[len(frontmatterDelimiter)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: unterminated frontmatter", ErrParse)
	}

	header = rest[:idx+1]
	body = rest[idx+1+len(frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")
	return header, body, nil
}
