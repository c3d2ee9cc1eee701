package scenario

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vxkeys/puppetry/api/schemas"
)

// placeholderPattern matches ${name} with the name limited to word
// characters, dots and dashes. Anything else stays literal text.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_.-]+)\}`)

// resolveSteps deep-copies the scenario's steps and substitutes every
// placeholder in the fields playback interprets: url, text, key, script,
// selector values and string args. Overrides win over the scenario's stored
// defaults. A placeholder with neither fails the whole resolution; partial
// substitution never reaches the executor. The stored scenario is not
// touched.
func resolveSteps(sc *schemas.Scenario, overrides map[string]string) ([]schemas.ActionDescriptor, error) {
	steps := schemas.CloneSteps(sc.Steps)

	var missing []string
	seen := make(map[string]bool)
	sub := func(in string) string {
		return placeholderPattern.ReplaceAllStringFunc(in, func(m string) string {
			name := placeholderPattern.FindStringSubmatch(m)[1]
			if v, ok := overrides[name]; ok {
				return v
			}
			if v, ok := sc.Variables[name]; ok {
				return v
			}
			if !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
			return m
		})
	}

	for i := range steps {
		st := &steps[i]
		st.URL = sub(st.URL)
		st.Text = sub(st.Text)
		st.Key = sub(st.Key)
		st.Script = sub(st.Script)
		if st.Selector != nil {
			st.Selector.Value = sub(st.Selector.Value)
		}
		if st.Target != nil {
			st.Target.Value = sub(st.Target.Value)
		}
		for j, arg := range st.Args {
			if v, ok := arg.(string); ok {
				st.Args[j] = sub(v)
			}
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", schemas.ErrUndefinedVariable, strings.Join(missing, ", "))
	}
	return steps, nil
}
