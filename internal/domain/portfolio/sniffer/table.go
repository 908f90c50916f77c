package sniffer

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidRoleTable = errors.New("invalid role table")

type roleTableFile struct {
	Roles RoleTable `yaml:"roles"`
}

// ParseRoleTable decodes a YAML role table:
//
//	roles:
//	  - role: value
//	    alternatives:
//	      - ["總現值", "含息"]
//
// Roles missing from the document keep their DefaultRoleTable spec.
func ParseRoleTable(data []byte) (RoleTable, error) {
	var file roleTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoleTable, err)
	}

	table := make(RoleTable, 0, len(Roles))
	for _, role := range Roles {
		spec, ok := file.Roles.lookup(role)
		if !ok {
			spec, _ = DefaultRoleTable.lookup(role)
		}
		for _, markers := range spec.Alternatives {
			if len(markers) == 0 {
				return nil, fmt.Errorf("%w: role %q has an empty marker set", ErrInvalidRoleTable, role)
			}
		}
		if len(spec.Alternatives) == 0 {
			return nil, fmt.Errorf("%w: role %q has no alternatives", ErrInvalidRoleTable, role)
		}
		table = append(table, spec)
	}

	for _, spec := range file.Roles {
		if _, ok := DefaultRoleTable.lookup(spec.Role); !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRoleTable, spec.Role)
		}
	}

	return table, nil
}

// LoadRoleTable reads a YAML role table from path. An empty path yields DefaultRoleTable.
func LoadRoleTable(path string) (RoleTable, error) {
	if path == "" {
		return DefaultRoleTable, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role table: %w", err)
	}
	return ParseRoleTable(data)
}
