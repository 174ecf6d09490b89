package capability

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

const policyModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

// policyLines grants capabilities to roles, one "p, role, capability" line
// per grant. A role with no line is granted nothing.
const policyLines = `
p, workspace_admin, invitation.create
p, workspace_admin, invitation.read
p, workspace_admin, invitation.cancel
p, workspace_admin, roster.read
p, workspace_admin, membership.update
p, workspace_admin, membership.repair
p, member, roster.read
`

var enforcer = mustEnforcer()

func mustEnforcer() *casbin.Enforcer {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		panic(fmt.Errorf("capability: load model: %w", err))
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		panic(fmt.Errorf("capability: create enforcer: %w", err))
	}

	rules, err := parsePolicy(policyLines)
	if err != nil {
		panic(err)
	}

	if _, err := e.AddPolicies(rules); err != nil {
		panic(fmt.Errorf("capability: add policies: %w", err))
	}

	return e
}

func parsePolicy(lines string) ([][]string, error) {
	var rules [][]string

	for _, line := range strings.Split(lines, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 3 || strings.TrimSpace(fields[0]) != "p" {
			return nil, fmt.Errorf("capability: malformed policy line %q", line)
		}

		r, c := strings.TrimSpace(fields[1]), strings.TrimSpace(fields[2])

		if _, err := role.Parse(r); err != nil {
			return nil, fmt.Errorf("capability: policy line %q: %w", line, err)
		}

		if _, err := Parse(c); err != nil {
			return nil, fmt.Errorf("capability: policy line %q: %w", line, err)
		}

		rules = append(rules, []string{r, c})
	}

	return rules, nil
}

// ForRole returns the capabilities granted to the role, in policy order.
func ForRole(r role.Role) []Capability {
	rules, err := enforcer.GetFilteredPolicy(0, r.String())
	if err != nil {
		return []Capability{}
	}

	out := make([]Capability, 0, len(rules))
	for _, rule := range rules {
		if c, err := Parse(rule[1]); err == nil {
			out = append(out, c)
		}
	}

	return out
}

// Allowed reports whether the role is granted the capability.
func Allowed(r role.Role, c Capability) bool {
	ok, err := enforcer.Enforce(r.String(), c.String())
	return err == nil && ok
}
