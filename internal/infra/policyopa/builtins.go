package policyopa

import "github.com/open-policy-agent/opa/ast"

// The review policy only compares strings and booleans; everything else is
// stripped from the compiler capabilities.
var allowedBuiltins = map[string]struct{}{
	"and":        {},
	"count":      {},
	"endswith":   {},
	"eq":         {},
	"equal":      {},
	"lower":      {},
	"neq":        {},
	"or":         {},
	"startswith": {},
	"trim":       {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
