package build

import (
	"fmt"
	"strings"

	"github.com/stratalab/strata/ast"
)

// UnsupportedFunctionError reports a function call with no translation for
// the chosen dialect.
type UnsupportedFunctionError struct {
	Function string
	Dialect  string
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("function %s is not supported in dialect %s", e.Function, e.Dialect)
}

// sqlFunctions maps a function name to the dialects that support it; nil
// means every dialect does.
var sqlFunctions = map[string][]string{
	"abs":        nil,
	"avg":        nil,
	"cast":       nil,
	"ceil":       nil,
	"coalesce":   nil,
	"concat":     nil,
	"count":      nil,
	"floor":      nil,
	"length":     nil,
	"lower":      nil,
	"max":        nil,
	"min":        nil,
	"nullif":     nil,
	"replace":    nil,
	"round":      nil,
	"substr":     nil,
	"sum":        nil,
	"trim":       nil,
	"upper":      nil,
	"date_trunc": {"postgres"},
	"ifnull":     {"mysql", "sqlite"},
	"now":        {"postgres", "mysql"},
	"strftime":   {"sqlite"},
}

// checkFunctions walks every function call in the query and fails on the
// first one the dialect cannot serve. An empty dialect skips the check.
func checkFunctions(query *ast.Query, dialect string) error {
	if dialect == "" {
		return nil
	}
	for _, fn := range ast.FindAll[*ast.Function](query) {
		name := strings.ToLower(fn.Ident().Name)
		dialects, known := sqlFunctions[name]
		if !known {
			return &UnsupportedFunctionError{Function: name, Dialect: dialect}
		}
		if dialects == nil {
			continue
		}
		supported := false
		for _, d := range dialects {
			if d == dialect {
				supported = true
				break
			}
		}
		if !supported {
			return &UnsupportedFunctionError{Function: name, Dialect: dialect}
		}
	}
	return nil
}
