// validation.go
package cinehub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const msgInvalidShape = "some preferences are invalid. Required properties are name, value and profileName."

// Validator classifies submitted entries against a Registry.
type Validator struct {
	registry *Registry
}

// NewValidator returns a Validator backed by registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks every entry and returns the keys that may be stored plus one message per
// rejected entry. Rejections are data, not errors: the returned error is reserved for storage
// failures and for enum types that have no configured allowed values.
//
// Keys submitted more than once are dropped entirely and reported once. The remaining entries go
// through the shape, existence, type and enum checks in that order; the first failing check
// produces the entry's only message.
func (v *Validator) Validate(ctx context.Context, entries []Entry) (*Validation, error) {
	result := &Validation{
		Valid:  []Key{},
		Errors: []string{},
	}

	remaining, dupErrors := dropDuplicates(entries)
	result.Errors = append(result.Errors, dupErrors...)

	for _, e := range remaining {
		msg, err := v.check(ctx, e)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			result.Errors = append(result.Errors, msg)
			continue
		}
		result.Valid = append(result.Valid, e.Key())
	}

	return result, nil
}

func dropDuplicates(entries []Entry) ([]Entry, []string) {
	counts := make(map[Key]int, len(entries))
	for _, e := range entries {
		counts[e.Key()]++
	}

	var errs []string
	reported := make(map[Key]bool)
	remaining := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		if counts[k] > 1 {
			if !reported[k] {
				reported[k] = true
				errs = append(errs, fmt.Sprintf("Preference %s for profile %s is duplicated. It will be ignored.", k.Name, k.ProfileName))
			}
			continue
		}
		remaining = append(remaining, e)
	}
	return remaining, errs
}

func (v *Validator) check(ctx context.Context, e Entry) (string, error) {
	if e.Name == "" || e.ProfileName == "" || e.Value.Missing() {
		return msgInvalidShape, nil
	}

	pt, err := v.registry.Find(ctx, e.Name)
	if errors.Is(err, ErrTypeNotFound) {
		return fmt.Sprintf("Preference %s does not exist.", e.Name), nil
	}
	if err != nil {
		return "", err
	}

	kind := e.Value.Kind()
	if pt.DataType != TypeEnum {
		if string(pt.DataType) != kind.String() {
			return typeMismatch(pt, kind), nil
		}
		return "", nil
	}

	s, ok := e.Value.Str()
	if !ok {
		return typeMismatch(pt, kind), nil
	}
	allowed, err := v.registry.AllowedValues(pt.Name)
	if err != nil {
		return "", err
	}
	if !slices.Contains(allowed, s) {
		return fmt.Sprintf("Preference %s has invalid value %s. Allowed values are: %s.", e.Name, s, strings.Join(allowed, ", ")), nil
	}
	return "", nil
}

func typeMismatch(pt *PreferenceType, kind Kind) string {
	return fmt.Sprintf("Preference %s has type %s but you provided %s.", pt.Name, pt.DataType, kind)
}
