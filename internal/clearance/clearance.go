// Package clearance maps employee identifiers to roles and roles to the
// document tiers they are allowed to read. The tier sets are strictly
// nested by seniority; Validate enforces that so retrieval filters can
// never end up with incomparable clearance sets.
package clearance

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role is a closed enumeration of the roles the system recognizes.
type Role string

const (
	RoleIntern    Role = "Intern"
	RoleHRManager Role = "HR Manager"
	RoleCFO       Role = "CFO"
)

// ErrUnresolvedRole is returned when an employee ID prefix doesn't map to
// any known role. This is an expected outcome, not a system failure.
var ErrUnresolvedRole = errors.New("employee ID does not resolve to a known role")

// Tier is a document sensitivity label attached at ingestion time.
type Tier string

const (
	TierPublic  Tier = "public"
	TierHR      Tier = "hr"
	TierFinance Tier = "finance"
)

// rolePrefixes maps the case-folded two-character employee ID prefix to a role.
var rolePrefixes = map[string]Role{
	"in": RoleIntern,
	"hr": RoleHRManager,
	"ex": RoleCFO,
}

// Resolve derives a role from an employee ID by its two-character prefix.
// Same input always yields the same result; unknown prefixes return
// ErrUnresolvedRole.
func Resolve(employeeID string) (Role, error) {
	if len(employeeID) < 2 {
		return "", ErrUnresolvedRole
	}
	prefix := strings.ToLower(employeeID[:2])
	role, ok := rolePrefixes[prefix]
	if !ok {
		return "", ErrUnresolvedRole
	}
	return role, nil
}

// Table holds the clearance set for each role, ordered by seniority.
type Table struct {
	// Sets is ordered least to most privileged. Each entry's tiers must be
	// a superset of the previous entry's.
	Sets []RoleSet `yaml:"roles"`
}

// RoleSet pairs a role with the tiers it may read.
type RoleSet struct {
	Role  Role   `yaml:"role"`
	Tiers []Tier `yaml:"tiers"`
}

// DefaultTable is the built-in clearance configuration. Interns read only
// public documents; HR adds the hr tier; the CFO reads everything.
func DefaultTable() *Table {
	return &Table{
		Sets: []RoleSet{
			{Role: RoleIntern, Tiers: []Tier{TierPublic}},
			{Role: RoleHRManager, Tiers: []Tier{TierPublic, TierHR}},
			{Role: RoleCFO, Tiers: []Tier{TierPublic, TierHR, TierFinance}},
		},
	}
}

// LoadTable reads a clearance table from a YAML file and validates it.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clearance config: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse clearance config: %w", err)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

// Validate checks that every role is known, no role appears twice, and the
// tier sets are strictly nested in seniority order.
func (t *Table) Validate() error {
	if len(t.Sets) == 0 {
		return errors.New("clearance table has no roles")
	}

	known := map[Role]bool{RoleIntern: true, RoleHRManager: true, RoleCFO: true}
	seen := map[Role]bool{}

	var prev map[Tier]bool
	for _, rs := range t.Sets {
		if !known[rs.Role] {
			return fmt.Errorf("clearance table references unknown role %q", rs.Role)
		}
		if seen[rs.Role] {
			return fmt.Errorf("clearance table lists role %q twice", rs.Role)
		}
		seen[rs.Role] = true

		if len(rs.Tiers) == 0 {
			return fmt.Errorf("role %q has an empty clearance set", rs.Role)
		}

		cur := make(map[Tier]bool, len(rs.Tiers))
		for _, tier := range rs.Tiers {
			cur[tier] = true
		}

		// Each set must contain everything the less privileged set contains.
		for tier := range prev {
			if !cur[tier] {
				return fmt.Errorf("role %q drops tier %q held by a less privileged role", rs.Role, tier)
			}
		}
		prev = cur
	}

	return nil
}

// SetFor returns the clearance set for a role, least to most sensitive.
func (t *Table) SetFor(role Role) ([]Tier, error) {
	for _, rs := range t.Sets {
		if rs.Role == role {
			tiers := make([]Tier, len(rs.Tiers))
			copy(tiers, rs.Tiers)
			return tiers, nil
		}
	}
	return nil, fmt.Errorf("role %q not present in clearance table", role)
}
