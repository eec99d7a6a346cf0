package cinehub

// DataType is the declared kind of a registered preference.
type DataType string

// Supported preference data types.
const (
	// TypeString accepts string values.
	TypeString DataType = "string"
	// TypeNumber accepts numeric values.
	TypeNumber DataType = "number"
	// TypeBoolean accepts true or false.
	TypeBoolean DataType = "boolean"
	// TypeEnum accepts a string from the allowed-value set configured for the preference name.
	TypeEnum DataType = "enum"
)

var validTypes = map[DataType]bool{
	TypeString:  true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeEnum:    true,
}

// Valid reports whether d is one of the four supported data types.
func (d DataType) Valid() bool {
	return validTypes[d]
}

// DefaultEnums is the allowed-value table used when no WithEnums option is given.
func DefaultEnums() map[string][]string {
	return map[string][]string{
		"theme": {"default", "soft", "lightTheme", "highContrast", "largeText"},
	}
}
