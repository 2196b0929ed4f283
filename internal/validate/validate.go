// Package validate provides composable field checks that report violations
// as (path, message) pairs.
//
// Each type validates its own fields and returns a List with paths relative
// to itself. A parent composes children by prefixing their lists:
//
//	var l validate.List
//	l.NotBlank("host", s.Host)
//	l.Merge("server", validateServer(s))
//	l.Merge(validate.Index("mappings", i), validateMapping(m))
package validate

import (
	"fmt"
	"strings"
)

// Message constants shared by all validators.
const (
	MsgNotBlank = "must not be blank"
	MsgPresent  = "must be present"
	MsgNotEmpty = "must not be empty"
)

// Violation is a single failed rule.
type Violation struct {
	Path    string
	Message string
}

// String renders the violation as "<path> <message>".
func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + " " + v.Message
}

// List is an ordered collection of violations. The zero value is ready to use.
type List []Violation

// Add appends a violation for path.
func (l *List) Add(path, message string) {
	*l = append(*l, Violation{Path: path, Message: message})
}

// NotBlank records a violation when s is empty or whitespace only. An
// optional msg replaces MsgNotBlank; the same holds for the other checks.
func (l *List) NotBlank(path, s string, msg ...string) {
	if strings.TrimSpace(s) == "" {
		l.Add(path, message(msg, MsgNotBlank))
	}
}

// Present records a violation when ok is false.
func (l *List) Present(path string, ok bool, msg ...string) {
	if !ok {
		l.Add(path, message(msg, MsgPresent))
	}
}

// NotEmpty records a violation when n is zero.
func (l *List) NotEmpty(path string, n int, msg ...string) {
	if n == 0 {
		l.Add(path, message(msg, MsgNotEmpty))
	}
}

// Min records a violation when v is below the inclusive lower bound.
func (l *List) Min(path string, v, bound int, msg ...string) {
	if v < bound {
		l.Add(path, message(msg, fmt.Sprintf("must be greater than or equal to %d", bound)))
	}
}

func message(msg []string, def string) string {
	if len(msg) > 0 && msg[0] != "" {
		return msg[0]
	}
	return def
}

// Merge appends child violations with their paths prefixed by prefix.
func (l *List) Merge(prefix string, child List) {
	*l = append(*l, child.Prefix(prefix)...)
}

// Prefix returns a copy of l with each path qualified by prefix using dotted
// notation. An empty prefix returns the list unchanged.
func (l List) Prefix(prefix string) List {
	if prefix == "" || len(l) == 0 {
		return l
	}
	out := make(List, len(l))
	for i, v := range l {
		p := prefix
		if v.Path != "" {
			p = prefix + "." + v.Path
		}
		out[i] = Violation{Path: p, Message: v.Message}
	}
	return out
}

// Err returns nil for an empty list, otherwise l as an error.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Error joins all violations with ", ".
func (l List) Error() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Paths returns the violation paths in order.
func (l List) Paths() []string {
	paths := make([]string, len(l))
	for i, v := range l {
		paths[i] = v.Path
	}
	return paths
}

// Index formats a sequence element path such as "labelVmMappings[2]".
func Index(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
