package cinehub

import (
	"fmt"
	"strconv"
)

// Decode converts the stored string form of a preference to its declared type.
// Booleans are true only for the exact string "true". A number that does not parse is returned
// as a string Value together with an ErrSerialization error.
func Decode(raw string, dataType DataType) (Value, error) {
	switch dataType {
	case TypeBoolean:
		return BoolValue(raw == "true"), nil
	case TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return StringValue(raw), fmt.Errorf("%w: %q is not a number", ErrSerialization, raw)
		}
		return NumberValue(n), nil
	default:
		return StringValue(raw), nil
	}
}

// GroupByProfile reduces typed preferences into profile -> name -> value.
// If a (profile, name) pair repeats, the last one wins.
func GroupByProfile(prefs []TypedPreference) Profiles {
	profiles := make(Profiles)
	for _, p := range prefs {
		byName, ok := profiles[p.ProfileName]
		if !ok {
			byName = make(map[string]Value)
			profiles[p.ProfileName] = byName
		}
		byName[p.Name] = p.Value
	}
	return profiles
}
