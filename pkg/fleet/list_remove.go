package fleet

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// List enumerates every container group the Cloud Adapter currently knows
// about, regardless of which fleet invocation created it.
func (c *Controller) List(ctx context.Context) ([]string, error) {
	names, err := c.cloud.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fleet: list groups: %w", err)
	}
	return names, nil
}

// Remove deletes every container group whose name matches the given glob
// pattern (doublestar syntax: "*" within a segment, "**" across segments).
// It removes as many matches as it can and returns a joined error only if
// at least one deletion failed; a pattern matching nothing is not an error.
func (c *Controller) Remove(ctx context.Context, pattern string) ([]string, error) {
	names, err := c.cloud.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fleet: list groups: %w", err)
	}

	var matched []string
	for _, name := range names {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("fleet: invalid pattern %q: %w", pattern, err)
		}
		if ok {
			matched = append(matched, name)
		}
	}

	var removed []string
	var failures []error
	for _, name := range matched {
		if err := c.cloud.DeleteGroup(ctx, name); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", name, err))
			continue
		}
		removed = append(removed, name)
	}

	if len(failures) > 0 {
		return removed, fmt.Errorf("fleet: remove: %d of %d matches failed: %w", len(failures), len(matched), joinErrors(failures))
	}
	return removed, nil
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
