package cfscdkutil

import (
	"slices"
	"strings"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
)

// SelectedProjects returns the projects whose stacks should be synthesized.
// If the projects context is not set, all projects are selected. A selection
// naming an unknown project is an error so that typos don't silently skip stacks.
func (c *Config) SelectedProjects(all []string) ([]string, error) {
	if c.Projects == nil {
		return all, nil
	}

	var unknown []string
	for _, p := range c.Projects {
		if !slices.Contains(all, p) {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) > 0 {
		return nil, errors.Newf("context key %q names unknown project(s): %s (known: %s)",
			c.Prefix+"projects", strings.Join(unknown, ", "), strings.Join(all, ", "))
	}

	selected := make([]string, 0, len(c.Projects))
	for _, p := range all {
		if slices.Contains(c.Projects, p) {
			selected = append(selected, p)
		}
	}
	return selected, nil
}

// readOptionalFields reads a whitespace separated context value, nil if unset or empty.
// Accepting a string keeps "-c prefix-projects='a b'" usable from the command line.
func readOptionalFields(scope constructs.Construct, key string) []string {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case string:
		if v == "" {
			return nil
		}
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
