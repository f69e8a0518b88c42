package paraclient

// Constraint is a validation constraint for a field of a type.
type Constraint struct {
	Name    string
	Payload map[string]any
}

func newConstraint(name string, payload map[string]any) Constraint {
	payload["message"] = "messages." + name
	return Constraint{Name: name, Payload: payload}
}

// Required marks a field as required.
func Required() Constraint {
	return newConstraint("required", map[string]any{})
}

// Min requires a number larger than or equal to value.
func Min(value int64) Constraint {
	return newConstraint("min", map[string]any{"value": value})
}

// Max requires a number smaller than or equal to value.
func Max(value int64) Constraint {
	return newConstraint("max", map[string]any{"value": value})
}

// Size requires a string, object or array with a length between lo and hi.
func Size(lo, hi int64) Constraint {
	return newConstraint("size", map[string]any{"min": lo, "max": hi})
}

// Digits limits the number of integral and fractional digits of a number or string.
func Digits(integer, fraction int64) Constraint {
	return newConstraint("digits", map[string]any{"integer": integer, "fraction": fraction})
}

// Pattern requires a value matching the regular expression regex.
func Pattern(regex string) Constraint {
	return newConstraint("pattern", map[string]any{"value": regex})
}

func Email() Constraint {
	return newConstraint("email", map[string]any{})
}

// Falsy requires a value not equal to true.
func Falsy() Constraint {
	return newConstraint("false", map[string]any{})
}

// Truthy requires a value equal to true.
func Truthy() Constraint {
	return newConstraint("true", map[string]any{})
}

// Future requires a date or timestamp in the future.
func Future() Constraint {
	return newConstraint("future", map[string]any{})
}

// Past requires a date or timestamp in the past.
func Past() Constraint {
	return newConstraint("past", map[string]any{})
}

func URL() Constraint {
	return newConstraint("url", map[string]any{})
}
