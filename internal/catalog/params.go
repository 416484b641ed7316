package catalog

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrUnknownParameter is returned when a patch names a field the kind does
// not declare.
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrInvalidParameter is returned when a value cannot be converted to the
// declared type of its parameter.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamSpecFor returns the declaration of field name on kind k.
func ParamSpecFor(k Kind, name string) (ParamSpec, bool) {
	c, ok := contracts[k]
	if !ok {
		return ParamSpec{}, false
	}
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Defaults returns a fresh map holding the default value of every parameter
// declared by k.
func Defaults(k Kind) map[string]cty.Value {
	out := map[string]cty.Value{}
	c, ok := contracts[k]
	if !ok {
		return out
	}
	for _, p := range c.Params {
		out[p.Name] = p.Default
	}
	return out
}

// ConvertParam converts v to the declared type of field name on kind k.
// Numeric parameters must be whole and non-negative.
func ConvertParam(k Kind, name string, v cty.Value) (cty.Value, error) {
	spec, ok := ParamSpecFor(k, name)
	if !ok {
		return cty.NilVal, fmt.Errorf("%w '%s' for kind '%s'", ErrUnknownParameter, name, k)
	}
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, fmt.Errorf("%w: '%s' must have a known, non-null value", ErrInvalidParameter, name)
	}

	converted, err := convert.Convert(v, spec.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%w: '%s': %w", ErrInvalidParameter, name, err)
	}

	if spec.Type == cty.Number {
		bf := converted.AsBigFloat()
		if !bf.IsInt() {
			return cty.NilVal, fmt.Errorf("%w: '%s' must be a whole number, got %s", ErrInvalidParameter, name, bf.Text('f', -1))
		}
		if bf.Sign() < 0 {
			return cty.NilVal, fmt.Errorf("%w: '%s' must not be negative", ErrInvalidParameter, name)
		}
		i, _ := bf.Int(nil)
		if !i.IsInt64() {
			return cty.NilVal, fmt.Errorf("%w: '%s' is out of range", ErrInvalidParameter, name)
		}
		converted = cty.NumberVal(new(big.Float).SetInt(i))
	}
	return converted, nil
}
