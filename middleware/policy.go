package middleware

import "strings"

// anyMethod matches every HTTP method in a rule.
const anyMethod = "*"

type rule struct {
	method  string
	pattern string
	role    string // empty means public
}

// Policy is the static endpoint classification. Rules are evaluated in
// declaration order, first match wins; a request matching no rule is denied.
// That deny-all fallback is the point: forgetting to declare an endpoint
// locks it, it never opens it.
type Policy struct {
	rules []rule
}

func NewPolicy() *Policy {
	return &Policy{}
}

// Public allows the endpoint with or without a credential.
func (p *Policy) Public(method, pattern string) *Policy {
	p.rules = append(p.rules, rule{method: method, pattern: pattern})
	return p
}

// Require restricts the endpoint to callers holding the given role.
func (p *Policy) Require(role, method, pattern string) *Policy {
	p.rules = append(p.rules, rule{method: method, pattern: pattern, role: role})
	return p
}

// decide returns the required role for the first matching rule. ok=false
// means no rule matched and the request must be denied.
func (p *Policy) decide(method, path string) (role string, public, ok bool) {
	for _, r := range p.rules {
		if r.method != anyMethod && r.method != method {
			continue
		}
		if !matchPattern(r.pattern, path) {
			continue
		}
		return r.role, r.role == "", true
	}
	return "", false, false
}

// matchPattern supports exact paths and trailing "/**" prefixes.
func matchPattern(pattern, path string) bool {
	if prefix, found := strings.CutSuffix(pattern, "/**"); found {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return pattern == path
}
