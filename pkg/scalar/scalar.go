// Package scalar converts between typed scalar values and the text a user edits.
package scalar

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/easyyaml/pkg/domain"
)

// truthy is the set of spellings that coerce to true. Anything else is false.
var truthy = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"y":    true,
}

// Coerce converts raw edited text into a value of the target kind.
//
// Bool coercion is lenient and one-sided: a case-insensitive match against
// {true, 1, yes, y} is true and every other text is false, never an error.
// Null ignores the text. String always succeeds.
func Coerce(raw string, kind domain.Kind) (domain.Value, error) {
	switch kind {
	case domain.KindString:
		return domain.String(raw), nil
	case domain.KindBool:
		return domain.Bool(truthy[strings.ToLower(raw)]), nil
	case domain.KindNull:
		return domain.Null(), nil
	case domain.KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return domain.Value{}, &domain.CoercionError{Text: raw, Kind: kind, Err: err}
		}
		return domain.Int(i), nil
	case domain.KindFloat:
		text := strings.TrimSpace(raw)
		switch strings.ToLower(text) {
		case ".nan":
			return domain.Float(math.NaN()), nil
		case ".inf", "+.inf":
			return domain.Float(math.Inf(1)), nil
		case "-.inf":
			return domain.Float(math.Inf(-1)), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return domain.Value{}, &domain.CoercionError{Text: raw, Kind: kind, Err: err}
		}
		return domain.Float(f), nil
	}
	return domain.Value{}, fmt.Errorf("%w: %s is not a scalar type", domain.ErrInvalidTarget, kind)
}

// Initial returns the value of a freshly added node of the given kind.
// Containers start empty and ignore raw; scalars are coerced from raw.
func Initial(kind domain.Kind, raw string) (domain.Value, error) {
	switch kind {
	case domain.KindMapping:
		return domain.Mapping(), nil
	case domain.KindSequence:
		return domain.Sequence(), nil
	}
	return Coerce(raw, kind)
}

// Zero is the empty value of a kind.
func Zero(kind domain.Kind) domain.Value {
	switch kind {
	case domain.KindString:
		return domain.String("")
	case domain.KindInt:
		return domain.Int(0)
	case domain.KindFloat:
		return domain.Float(0)
	case domain.KindBool:
		return domain.Bool(false)
	case domain.KindMapping:
		return domain.Mapping()
	case domain.KindSequence:
		return domain.Sequence()
	}
	return domain.Null()
}

// Display is the text shown in the value column of the tree and offered for
// editing. Feeding it back to Coerce with the same kind yields the same value.
func Display(v domain.Value) string {
	switch v.Kind() {
	case domain.KindString:
		return v.AsString()
	case domain.KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case domain.KindFloat:
		return FormatFloat(v.AsFloat())
	case domain.KindBool:
		return strconv.FormatBool(v.AsBool())
	case domain.KindMapping:
		return fmt.Sprintf("{%d}", v.Len())
	case domain.KindSequence:
		return fmt.Sprintf("[%d]", v.Len())
	}
	return "null"
}

// FormatFloat renders f so that it always reads back as a float: whole numbers
// keep a trailing ".0" and non-finite values use the YAML spellings.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
