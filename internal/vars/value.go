package vars

// AbsentLiteral is what an absent value renders as when it is substituted
// anyway.
const AbsentLiteral = "undefined"

// Value is a context fact that may be absent. The zero Value is absent,
// which is distinct from a present empty string.
type Value struct {
	s  string
	ok bool
}

// Absent is the missing value.
var Absent = Value{}

// Present wraps s as a present value.
func Present(s string) Value {
	return Value{s: s, ok: true}
}

// Get returns the string and whether it is present.
func (v Value) Get() (string, bool) {
	return v.s, v.ok
}

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool {
	return !v.ok
}

// String renders v, using AbsentLiteral for absent values.
func (v Value) String() string {
	if !v.ok {
		return AbsentLiteral
	}
	return v.s
}
