package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Validate performs a startup parity check over the table: every target is
// a known kind, every default conforms to its declared type and every row
// carries its descriptions. A failure here is a programming error.
func Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, k := range order {
		c, ok := contracts[k]
		if !ok {
			errs = append(errs, fmt.Sprintf("kind '%s' listed in order but has no contract", k))
			continue
		}
		if c.Kind != k {
			errs = append(errs, fmt.Sprintf("kind '%s' registered under key '%s'", c.Kind, k))
		}
		if c.InputDescription == "" || c.OutputDescription == "" {
			errs = append(errs, fmt.Sprintf("kind '%s' is missing a description", k))
		}
		for _, t := range c.Targets {
			if !Known(t) {
				errs = append(errs, fmt.Sprintf("kind '%s' targets unknown kind '%s'", k, t))
			}
			if t == k {
				errs = append(errs, fmt.Sprintf("kind '%s' may not target itself", k))
			}
		}
		for _, p := range c.Params {
			if !p.Default.Type().Equals(p.Type) {
				errs = append(errs, fmt.Sprintf("kind '%s', parameter '%s': default has type %s, declared %s",
					k, p.Name, p.Default.Type().FriendlyName(), p.Type.FriendlyName()))
				continue
			}
			var n int
			if err := gocty.FromCtyValue(p.Default, &n); err != nil {
				errs = append(errs, fmt.Sprintf("kind '%s', parameter '%s': default is not an integer: %v", k, p.Name, err))
			}
		}
	}
	if len(contracts) != len(order) {
		errs = append(errs, fmt.Sprintf("catalog has %d contracts but %d ordered kinds", len(contracts), len(order)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Catalog validation passed.", "kinds", len(order))
	return nil
}
