package inventory

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// record is the on-disk shape of an entry.
type record struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Released flag   `json:"released" yaml:"released"`
	Approved flag   `json:"approved" yaml:"approved"`
	Verified flag   `json:"verified" yaml:"verified"`
	SHA1     string `json:"sha1" yaml:"sha1"`
	Checksum string `json:"checksum" yaml:"checksum"`
	Path     string `json:"path" yaml:"path"`
	Comment  string `json:"comment" yaml:"comment"`
}

func (r record) entry(key string) domain.InventoryEntry {
	name := r.Name
	if name == "" {
		name = key
	}
	sum := r.Checksum
	if sum == "" {
		sum = r.SHA1
	}
	return domain.InventoryEntry{
		Name:     name,
		Version:  r.Version,
		Released: bool(r.Released),
		Approved: bool(r.Approved),
		Verified: bool(r.Verified),
		Checksum: strings.ToLower(strings.TrimSpace(sum)),
		Path:     r.Path,
		Comment:  r.Comment,
	}
}

// flag accepts booleans and the strings yes/no/true/false/1/0.
type flag bool

func parseFlag(s string) (flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid flag %q", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		v, err := parseFlag(s)
		if err != nil {
			return err
		}
		*f = v
		return nil
	}
	v, err := parseFlag(string(data))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *flag) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseFlag(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*f = v
	return nil
}

func decodeJSON(data []byte) ([]domain.InventoryEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return fromList(list), nil
	}
	var byName map[string][]record
	if err := json.Unmarshal(trimmed, &byName); err != nil {
		return nil, err
	}
	return fromMap(byName), nil
}

func decodeYAML(data []byte) ([]domain.InventoryEntry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var list []record
		if err := doc.Decode(&list); err != nil {
			return nil, err
		}
		return fromList(list), nil
	case yaml.MappingNode:
		var byName map[string][]record
		if err := doc.Decode(&byName); err != nil {
			return nil, err
		}
		return fromMap(byName), nil
	default:
		return nil, fmt.Errorf("line %d: expected a mapping or a list", doc.Line)
	}
}

func fromList(list []record) []domain.InventoryEntry {
	entries := make([]domain.InventoryEntry, 0, len(list))
	for _, r := range list {
		entries = append(entries, r.entry(""))
	}
	return entries
}

// fromMap flattens the keyed form in name order so results are stable.
func fromMap(byName map[string][]record) []domain.InventoryEntry {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []domain.InventoryEntry
	for _, name := range names {
		for _, r := range byName[name] {
			entries = append(entries, r.entry(name))
		}
	}
	return entries
}
