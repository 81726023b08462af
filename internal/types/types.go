package types

import (
	"fmt"
	"strings"
)

// Severity is the strength of a piece of evidence. Values are totally
// ordered from SevNone to SevDanger.
type Severity int

const (
	SevNone Severity = iota
	SevMinimal
	SevLow
	SevModerate
	SevHigh
	SevDanger
)

var severityNames = [...]string{"none", "minimal", "low", "moderate", "high", "danger"}

// Severities lists every severity in ascending order.
func Severities() []Severity {
	return []Severity{SevNone, SevMinimal, SevLow, SevModerate, SevHigh, SevDanger}
}

func (s Severity) Valid() bool { return s >= SevNone && s <= SevDanger }

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity accepts the lowercase names returned by String.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SevNone, fmt.Errorf("%w: unknown severity %q", ErrInvalidArgument, s)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: severity %d", ErrInvalidArgument, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MaxSeverity returns the highest of the given severities, or SevNone.
func MaxSeverity(sevs ...Severity) Severity {
	worst := SevNone
	for _, s := range sevs {
		if s > worst {
			worst = s
		}
	}
	return worst
}

// EntityKind tags what a result item or proof refers to.
type EntityKind int

const (
	KindType EntityKind = iota + 1
	KindAttribute
	KindRole
	KindUser
	KindBoolean
	KindClass
	KindPermission
	KindFileContext
)

var kindNames = map[EntityKind]string{
	KindType:        "type",
	KindAttribute:   "attribute",
	KindRole:        "role",
	KindUser:        "user",
	KindBoolean:     "boolean",
	KindClass:       "class",
	KindPermission:  "permission",
	KindFileContext: "file_context",
}

func (k EntityKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k EntityKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseEntityKind(s string) (EntityKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidArgument, s)
}

func (k EntityKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: entity kind %d", ErrInvalidArgument, int(k))
	}
	return []byte(k.String()), nil
}

func (k *EntityKind) UnmarshalText(b []byte) error {
	v, err := ParseEntityKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// NameValue is an ordered key/value pair used for module options,
// requirements and dependencies. Keys may repeat.
type NameValue struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

func (nv NameValue) String() string {
	if nv.Value == "" {
		return nv.Name
	}
	return nv.Name + "=" + nv.Value
}
