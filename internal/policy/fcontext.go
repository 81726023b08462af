package policy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Context is a security context user:role:type[:range].
type Context struct {
	User  string
	Role  string
	Type  string
	Range string
}

func (c Context) String() string {
	s := c.User + ":" + c.Role + ":" + c.Type
	if c.Range != "" {
		s += ":" + c.Range
	}
	return s
}

// FileContext is one file_contexts entry. Context is nil for <<none>>.
type FileContext struct {
	Line     int
	Path     string
	FileType string
	Context  *Context
}

var fileTypes = map[string]bool{
	"--": true, "-d": true, "-c": true, "-b": true, "-l": true, "-p": true, "-s": true,
}

// ParseFileContexts reads file_contexts entries. Blank lines and # comments
// are skipped.
func ParseFileContexts(r io.Reader) ([]FileContext, error) {
	var out []FileContext
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		entry := FileContext{Line: line, Path: fields[0]}
		var ctx string
		switch len(fields) {
		case 2:
			ctx = fields[1]
		case 3:
			if !fileTypes[fields[1]] {
				return nil, fmt.Errorf("line %d: unknown file type %q", line, fields[1])
			}
			entry.FileType = fields[1]
			ctx = fields[2]
		default:
			return nil, fmt.Errorf("line %d: expected 2 or 3 fields, got %d", line, len(fields))
		}
		if ctx != "<<none>>" {
			c, err := parseContext(ctx)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			entry.Context = &c
		}
		out = append(out, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseContext(s string) (Context, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return Context{}, fmt.Errorf("malformed context %q", s)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Context{}, fmt.Errorf("malformed context %q", s)
		}
	}
	c := Context{User: parts[0], Role: parts[1], Type: parts[2]}
	if len(parts) == 4 {
		c.Range = parts[3]
	}
	return c, nil
}
