package erp

// Record is one remote record as returned by search_read/read. The remote
// system is dynamically typed and returns false for empty fields, so the typed
// accessors below normalize false (and missing keys) to zero values.
type Record map[string]any

func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (r Record) Str(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Condition is one term of a search domain, e.g. {"barcode", "=", "123"}.
type Condition [3]any

// Domain is the remote system's polish-notation filter expression.
type Domain []Condition

// Eq builds the common single-field equality domain.
func Eq(field string, value any) Domain {
	return Domain{{field, "=", value}}
}
