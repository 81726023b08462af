package types

import (
	"fmt"
	"strings"
)

// OutputFormat is a bitmask selecting which report components are rendered.
// The zero value means "inherit the library-wide format".
type OutputFormat uint8

const (
	OutStats  OutputFormat = 0x01
	OutList   OutputFormat = 0x02
	OutProof  OutputFormat = 0x04
	OutHeader OutputFormat = 0x08

	OutQuiet   = OutStats | OutHeader
	OutShort   = OutQuiet | OutList
	OutLong    = OutQuiet | OutProof
	OutVerbose = OutShort | OutLong
)

func (f OutputFormat) Has(flag OutputFormat) bool { return f&flag == flag }

func (f OutputFormat) String() string {
	switch f {
	case 0:
		return "inherit"
	case OutQuiet:
		return "quiet"
	case OutShort:
		return "short"
	case OutLong:
		return "long"
	case OutVerbose:
		return "verbose"
	}
	var parts []string
	for _, p := range []struct {
		flag OutputFormat
		name string
	}{{OutStats, "stats"}, {OutList, "list"}, {OutProof, "proof"}, {OutHeader, "header"}} {
		if f.Has(p.flag) {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseOutputFormat accepts the declaration keywords short, quiet, long and
// verbose.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short":
		return OutShort, nil
	case "quiet":
		return OutQuiet, nil
	case "long":
		return OutLong, nil
	case "verbose":
		return OutVerbose, nil
	}
	return 0, fmt.Errorf("%w: unknown output format %q", ErrInvalidArgument, s)
}
