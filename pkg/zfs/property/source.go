// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package property

import "strings"

// Source is the provenance of a property value.
type Source int

const (
	SourceNone Source = iota
	SourceDefault
	SourceLocal
	SourceInherited
	SourceTemporary
	SourceReceived
)

var sourceNames = map[Source]string{
	SourceNone:      "-",
	SourceDefault:   "default",
	SourceLocal:     "local",
	SourceInherited: "inherited",
	SourceTemporary: "temporary",
	SourceReceived:  "received",
}

func (s Source) String() string {
	return sourceNames[s]
}

// MarshalText renders the source the way `zfs get` does, without the
// "from <dataset>" suffix.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSource parses the source column of `zfs get -H`. For inherited
// values the second result is the dataset the value comes from.
func ParseSource(s string) (Source, string) {
	s = strings.TrimSpace(s)
	switch {
	case s == "local":
		return SourceLocal, ""
	case s == "default":
		return SourceDefault, ""
	case s == "temporary":
		return SourceTemporary, ""
	case s == "received":
		return SourceReceived, ""
	case strings.HasPrefix(s, "inherited from "):
		return SourceInherited, strings.TrimPrefix(s, "inherited from ")
	case s == "inherited":
		return SourceInherited, ""
	default:
		return SourceNone, ""
	}
}

// FormatSource is the inverse of ParseSource.
func FormatSource(s Source, from string) string {
	if s == SourceInherited && from != "" {
		return "inherited from " + from
	}
	return s.String()
}
