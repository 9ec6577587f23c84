package distance

import (
	"fmt"
)

// Method selects how distances are computed.
type Method int

const (
	Norm Method = iota
	RawOverlap
	PctOverlapOfInput
	PctOverlapOfProto
	PctOverlapOfLarger
)

var methodNames = [...]string{
	Norm:               "norm",
	RawOverlap:         "rawOverlap",
	PctOverlapOfInput:  "pctOverlapOfInput",
	PctOverlapOfProto:  "pctOverlapOfProto",
	PctOverlapOfLarger: "pctOverlapOfLarger",
}

func (m Method) String() string {
	if m.Valid() {
		return methodNames[m]
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// Valid reports whether m is one of the defined methods.
func (m Method) Valid() bool {
	return m >= Norm && m <= PctOverlapOfLarger
}

// ParseMethod returns the method with the given name.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return Method(m), nil
		}
	}
	return 0, &ErrUnknownMethod{Name: s}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, &ErrUnknownMethod{Name: m.String()}
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	v, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ErrUnknownMethod is returned for an unrecognized method name.
type ErrUnknownMethod struct {
	Name string
}

func (e *ErrUnknownMethod) Error() string {
	return fmt.Sprintf("distance: unknown method %q", e.Name)
}
