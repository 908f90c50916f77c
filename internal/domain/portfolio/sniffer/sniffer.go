// Package sniffer locates the logical fields of a summary tab among free-form,
// occasionally renamed column headers.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Role is a logical field that has to be found among the headers.
type Role string

const (
	RoleName     Role = "name"
	RoleValue    Role = "value"
	RoleProfit   Role = "profit"
	RoleCurrency Role = "currency"
)

// Roles lists every role a FieldRoles value binds, in resolution order.
var Roles = []Role{RoleName, RoleValue, RoleProfit, RoleCurrency}

// RoleSpec describes how to recognise one role. A header matches when it contains
// every marker of at least one of the alternatives.
type RoleSpec struct {
	Role         Role       `yaml:"role"`
	Alternatives [][]string `yaml:"alternatives"`
}

// RoleTable is the ordered set of role specifications consumed by Resolve.
type RoleTable []RoleSpec

// DefaultRoleTable matches the summary tab layout ("總和") in Chinese or English.
var DefaultRoleTable = RoleTable{
	{Role: RoleName, Alternatives: [][]string{{"基金名稱"}, {"fund name"}}},
	{Role: RoleValue, Alternatives: [][]string{{"總現值", "含息"}, {"current value", "with interest"}}},
	{Role: RoleProfit, Alternatives: [][]string{{"損益", "含息"}, {"profit/loss", "with interest"}}},
	{Role: RoleCurrency, Alternatives: [][]string{{"幣別"}, {"currency"}}},
}

// ErrFieldUnresolved is matched by every FieldResolutionError.
var ErrFieldUnresolved = errors.New("required column not found")

// FieldResolutionError reports a role that no header satisfied.
type FieldResolutionError struct {
	Role    Role
	Headers []string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("no column found for role %q among headers [%s]", e.Role, strings.Join(e.Headers, ", "))
}

func (e *FieldResolutionError) Unwrap() error {
	return ErrFieldUnresolved
}

// FieldRoles binds each role to one column.
type FieldRoles struct {
	Name     Column
	Value    Column
	Profit   Column
	Currency Column
}

// Column is a resolved header and its position.
type Column struct {
	Index  int
	Header string
}

// Get returns the column bound to r.
func (f FieldRoles) Get(r Role) (Column, bool) {
	switch r {
	case RoleName:
		return f.Name, true
	case RoleValue:
		return f.Value, true
	case RoleProfit:
		return f.Profit, true
	case RoleCurrency:
		return f.Currency, true
	}
	return Column{}, false
}

func (f *FieldRoles) set(r Role, c Column) {
	switch r {
	case RoleName:
		f.Name = c
	case RoleValue:
		f.Value = c
	case RoleProfit:
		f.Profit = c
	case RoleCurrency:
		f.Currency = c
	}
}

// Resolve binds every role of Roles to the first header that matches its spec in table.
// Roles are resolved independently, so one header may serve two roles.
func Resolve(headers []string, table RoleTable) (FieldRoles, error) {
	var roles FieldRoles
	for _, role := range Roles {
		spec, ok := table.lookup(role)
		if !ok {
			return FieldRoles{}, &FieldResolutionError{Role: role, Headers: append([]string(nil), headers...)}
		}
		idx := MatchColumn(headers, spec.Alternatives)
		if idx < 0 {
			return FieldRoles{}, &FieldResolutionError{Role: role, Headers: append([]string(nil), headers...)}
		}
		roles.set(role, Column{Index: idx, Header: headers[idx]})
	}
	return roles, nil
}

// MatchColumn returns the lowest index whose header contains all markers of any
// alternative, or -1. Matching ignores case.
func MatchColumn(headers []string, alternatives [][]string) int {
	for i, header := range headers {
		h := strings.ToLower(header)
		for _, markers := range alternatives {
			if containsAll(h, markers) {
				return i
			}
		}
	}
	return -1
}

func containsAll(header string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	for _, m := range markers {
		if !strings.Contains(header, strings.ToLower(m)) {
			return false
		}
	}
	return true
}

func (t RoleTable) lookup(r Role) (RoleSpec, bool) {
	for _, spec := range t {
		if spec.Role == r {
			return spec, true
		}
	}
	return RoleSpec{}, false
}

// Fingerprint creates a stable hash of the header names, used to notice when the
// layout of a tab changes between reads.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
