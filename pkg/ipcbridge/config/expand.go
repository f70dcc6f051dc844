package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholder matches ${NAME} and ${NAME:-fallback}.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::-([^}]*))?\}`)

// LookupFunc resolves a variable. os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// UndefinedVariableError lists placeholders that had neither a value nor a
// fallback.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// Expand returns a copy of c with ${NAME} placeholders in string values,
// including nested sections and lists, replaced through lookup.
// ${NAME:-fallback} uses fallback when NAME is unset.
//
//	cfg, err = cfg.Expand(os.LookupEnv)
func (c Config) Expand(lookup LookupFunc) (Config, error) {
	missing := make(map[string]struct{})
	out := expandMap(c.data, lookup, missing)

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return Config{}, &UndefinedVariableError{Names: names}
	}
	return New(out), nil
}

func expandMap(m map[string]any, lookup LookupFunc, missing map[string]struct{}) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = expandValue(v, lookup, missing)
	}
	return out
}

func expandValue(v any, lookup LookupFunc, missing map[string]struct{}) any {
	switch val := v.(type) {
	case string:
		return expandString(val, lookup, missing)
	case map[string]any:
		return expandMap(val, lookup, missing)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item, lookup, missing)
		}
		return out
	default:
		return v
	}
}

func expandString(s string, lookup LookupFunc, missing map[string]struct{}) string {
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		name := groups[1]
		if val, ok := lookup(name); ok {
			return val
		}
		if strings.Contains(match, ":-") {
			return groups[2]
		}
		missing[name] = struct{}{}
		return match
	})
}
