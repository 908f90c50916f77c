package sniffer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Header row of the summary tab as exported from the spreadsheet
var summaryHeaders = []string{"基金名稱", "總現值\n含息", "損益\n(含息)", "幣別"}

func TestResolve_SummaryTab(t *testing.T) {
	roles, err := Resolve(summaryHeaders, DefaultRoleTable)
	require.NoError(t, err)

	assert.Equal(t, 0, roles.Name.Index)
	assert.Equal(t, 1, roles.Value.Index)
	assert.Equal(t, 2, roles.Profit.Index)
	assert.Equal(t, 3, roles.Currency.Index)
	assert.Equal(t, "損益\n(含息)", roles.Profit.Header)
}

func TestResolve_MissingValueMarker(t *testing.T) {
	headers := []string{"基金名稱", "總現值", "損益\n(含息)", "幣別"}

	_, err := Resolve(headers, DefaultRoleTable)
	require.Error(t, err)

	var fieldErr *FieldResolutionError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, RoleValue, fieldErr.Role)
	assert.Equal(t, headers, fieldErr.Headers)
	assert.True(t, errors.Is(err, ErrFieldUnresolved))
	assert.Contains(t, err.Error(), "總現值")
}

func TestResolve_FirstMatchWins(t *testing.T) {
	headers := []string{"備註", "基金名稱(舊)", "基金名稱", "總現值 含息", "總現值含息(USD)", "損益含息", "幣別"}

	roles, err := Resolve(headers, DefaultRoleTable)
	require.NoError(t, err)
	assert.Equal(t, 1, roles.Name.Index)
	assert.Equal(t, 3, roles.Value.Index)
	assert.Equal(t, 5, roles.Profit.Index)
}

func TestResolve_RolesMayShareColumn(t *testing.T) {
	table := RoleTable{
		{Role: RoleName, Alternatives: [][]string{{"fund"}}},
		{Role: RoleValue, Alternatives: [][]string{{"fund"}}},
		{Role: RoleProfit, Alternatives: [][]string{{"p"}}},
		{Role: RoleCurrency, Alternatives: [][]string{{"ccy"}}},
	}

	roles, err := Resolve([]string{"fund", "p", "ccy"}, table)
	require.NoError(t, err)
	assert.Equal(t, roles.Name.Index, roles.Value.Index)
}

func TestResolve_EnglishHeadersIgnoreCase(t *testing.T) {
	headers := []string{"Fund Name", "Current Value (with interest)", "Profit/Loss with interest", "CURRENCY"}

	roles, err := Resolve(headers, DefaultRoleTable)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{roles.Name.Index, roles.Value.Index, roles.Profit.Index, roles.Currency.Index})
}

func TestResolve_RoleMissingFromTable(t *testing.T) {
	table := RoleTable{DefaultRoleTable[0], DefaultRoleTable[1], DefaultRoleTable[2]}

	_, err := Resolve(summaryHeaders, table)
	var fieldErr *FieldResolutionError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, RoleCurrency, fieldErr.Role)
}

func TestMatchColumn_EmptyMarkerSetNeverMatches(t *testing.T) {
	assert.Equal(t, -1, MatchColumn([]string{"a", "b"}, [][]string{{}}))
	assert.Equal(t, -1, MatchColumn(nil, [][]string{{"a"}}))
}

func TestFieldRoles_Get(t *testing.T) {
	roles, err := Resolve(summaryHeaders, DefaultRoleTable)
	require.NoError(t, err)

	for i, role := range Roles {
		col, ok := roles.Get(role)
		require.True(t, ok)
		assert.Equal(t, i, col.Index)
	}
	_, ok := roles.Get(Role("other"))
	assert.False(t, ok)
}

func TestParseRoleTable(t *testing.T) {
	doc := `
roles:
  - role: currency
    alternatives:
      - ["幣別"]
      - ["ccy"]
`
	table, err := ParseRoleTable([]byte(doc))
	require.NoError(t, err)
	require.Len(t, table, len(Roles))

	roles, err := Resolve([]string{"基金名稱", "總現值含息", "損益含息", "CCY"}, table)
	require.NoError(t, err)
	assert.Equal(t, 3, roles.Currency.Index)
}

func TestParseRoleTable_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown role":     "roles:\n  - role: isin\n    alternatives: [[\"ISIN\"]]\n",
		"empty marker set": "roles:\n  - role: name\n    alternatives: [[]]\n",
		"no alternatives":  "roles:\n  - role: name\n    alternatives: []\n",
		"bad yaml":         "roles: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRoleTable([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidRoleTable)
		})
	}
}

func TestLoadRoleTable(t *testing.T) {
	table, err := LoadRoleTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoleTable, table)

	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  - role: name\n    alternatives: [[\"名稱\"]]\n"), 0o600))
	table, err = LoadRoleTable(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"名稱"}}, table[0].Alternatives)

	_, err = LoadRoleTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(summaryHeaders)
	b := Fingerprint([]string{"基金名稱", "總現值 含息", "損益(含息)", "幣別"})
	c := Fingerprint([]string{"基金名稱", "幣別"})

	assert.Equal(t, a, b, "punctuation and whitespace should not change the fingerprint")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.False(t, strings.ContainsAny(a, "GHIJ"))
}
