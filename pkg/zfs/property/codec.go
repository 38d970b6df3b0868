// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
)

const (
	MaxUserPropNameLen  = 256  // ZAP_MAXNAMELEN
	MaxUserPropValueLen = 8192 // ZAP_MAXVALUELEN
)

// Raw is a property value as the gateway reports it.
type Raw struct {
	Value      string
	Source     Source
	SourceData string // dataset the value is inherited from
}

// Value is a decoded native property.
type Value struct {
	Prop      Prop   `json:"-"`
	Name      string `json:"property"`
	Kind      Kind   `json:"-"`
	Number    uint64 `json:"number,omitempty"`
	Text      string `json:"value"`
	Source    Source `json:"source"`
	Inherited string `json:"inheritedFrom,omitempty"`
}

func (v Value) String() string {
	return v.Text
}

// UserRecord is the nested record stored under each user property key.
type UserRecord struct {
	Value      string `json:"value"`
	Source     Source `json:"source"`
	SourceData string `json:"inheritedFrom,omitempty"`
}

// UserProperties maps user property keys to their records.
type UserProperties map[string]UserRecord

// Keys returns the keys in sorted order.
func (u UserProperties) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Wire is an encoded property assignment ready for the gateway.
type Wire struct {
	Key   string
	Value string
}

// Arg renders w as a `key=value` argument.
func (w Wire) Arg() string {
	return w.Key + "=" + w.Value
}

func unsupported(name string, t common.DatasetType, why string) *errors.KitError {
	return errors.New(errors.ZFSPropertyUnsupported, why).
		WithMetadata("property", name).
		WithMetadata("type", t.String())
}

func invalidValue(name, value, why string) *errors.KitError {
	return errors.New(errors.ZFSInvalidValue, why).
		WithMetadata("property", name).
		WithMetadata("value", value)
}

// DecodeSystemProperty turns a raw native value into a typed Value. Numbers
// become uint64, index properties a name from the table, strings are kept
// verbatim. A property that does not apply to t fails instead of falling
// back to a default.
func DecodeSystemProperty(raw Raw, p Prop, t common.DatasetType) (Value, error) {
	def, ok := Lookup(p)
	if !ok {
		return Value{}, unsupported(p.Name(), t, "unknown property")
	}
	if def.Types&t == 0 {
		return Value{}, unsupported(def.Name, t, fmt.Sprintf("'%s' does not apply to datasets of this type", def.Name))
	}

	v := Value{
		Prop:      p,
		Name:      def.Name,
		Kind:      def.Kind,
		Text:      raw.Value,
		Source:    raw.Source,
		Inherited: raw.SourceData,
	}

	switch def.Kind {
	case KindNumber:
		n, err := parseNumber(p, raw.Value)
		if err != nil {
			return Value{}, unsupported(def.Name, t, err.Error())
		}
		v.Number = n
	case KindIndex:
		if !slices.Contains(def.Values, raw.Value) {
			return Value{}, unsupported(def.Name, t,
				fmt.Sprintf("value '%s' is not in the index table", raw.Value))
		}
	case KindString:
	}
	return v, nil
}

func parseNumber(p Prop, s string) (uint64, error) {
	switch p {
	case PropCompressRatio, PropRefCompressRatio:
		// reported as "1.50" or "1.50x"; stored as hundredths
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "x"), 64)
		if err != nil {
			return 0, fmt.Errorf("bad ratio '%s'", s)
		}
		return uint64(f*100 + 0.5), nil
	}
	return ParseSize(s)
}

// ParseSize parses a numeric property value. Plain integers, "none" and
// "-" (both zero) and binary suffixes as zfs prints them ("10G", "1.5T")
// are accepted.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "-", "none":
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}

	// zfs suffixes are powers of 1024; humanize needs the IEC spelling
	norm := strings.ToUpper(s)
	norm = strings.TrimSuffix(norm, "B")
	if len(norm) > 0 && strings.ContainsRune("KMGTPE", rune(norm[len(norm)-1])) {
		norm += "iB"
	}
	n, err := humanize.ParseBytes(norm)
	if err != nil {
		return 0, fmt.Errorf("bad numeric value '%s'", s)
	}
	return n, nil
}

// FormatSize renders n the way `zfs list` does without -p.
func FormatSize(n uint64) string {
	s := strings.ReplaceAll(humanize.IBytes(n), " ", "")
	s = strings.Replace(s, ".0", "", 1)
	s = strings.TrimSuffix(s, "iB")
	return strings.TrimSuffix(s, "B")
}

// DecodeUserProperty returns the value stored under key. Absence is the
// second result, not an error.
func DecodeUserProperty(props UserProperties, key string) (string, bool) {
	rec, ok := props[key]
	if !ok {
		return "", false
	}
	return rec.Value, true
}

func validUserPropChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == ':'
}

// IsUserProperty reports whether name is a well formed user property name.
func IsUserProperty(name string) bool {
	return ValidateUserPropertyName(name) == nil
}

// ValidateUserPropertyName checks the module:property naming rule.
func ValidateUserPropertyName(name string) error {
	if name == "" {
		return invalidValue(name, "", "invalid property name: empty")
	}
	if len(name) > MaxUserPropNameLen {
		return invalidValue(name, "", "property name is too long")
	}
	foundSep := false
	for _, c := range name {
		if !validUserPropChar(c) {
			return invalidValue(name, "", fmt.Sprintf("invalid character '%c' in property name", c))
		}
		if c == ':' {
			foundSep = true
		}
	}
	if !foundSep {
		return unsupported(name, common.TypeInvalid, "invalid property '"+name+"'")
	}
	return nil
}

// EncodeUserProperty validates a user property assignment.
func EncodeUserProperty(key, value string) (Wire, error) {
	if err := ValidateUserPropertyName(key); err != nil {
		return Wire{}, err
	}
	if len(value) > MaxUserPropValueLen {
		return Wire{}, invalidValue(key, "", "property value is too long")
	}
	return Wire{Key: key, Value: value}, nil
}

// EncodeProperty validates an assignment of a native or user property on
// a dataset of type t.
func EncodeProperty(key, value string, t common.DatasetType) (Wire, error) {
	if strings.Contains(key, ":") {
		return EncodeUserProperty(key, value)
	}

	p, ok := ParseProp(key)
	if !ok {
		return Wire{}, unsupported(key, t, "invalid property '"+key+"'")
	}
	def, _ := Lookup(p)
	if def.Readonly {
		return Wire{}, unsupported(def.Name, t, "'"+def.Name+"' is readonly")
	}
	if t != common.TypeInvalid && def.Types&t == 0 {
		return Wire{}, unsupported(def.Name, t, fmt.Sprintf("'%s' does not apply to datasets of this type", def.Name))
	}

	switch def.Kind {
	case KindNumber:
		if _, err := ParseSize(value); err != nil {
			return Wire{}, invalidValue(def.Name, value, fmt.Sprintf("bad numeric value '%s'", value))
		}
	case KindIndex:
		if !slices.Contains(def.Values, value) {
			return Wire{}, invalidValue(def.Name, value,
				fmt.Sprintf("'%s' must be one of '%s'", def.Name, strings.Join(def.Values, " | ")))
		}
	case KindString:
		if def.Prop == PropMountpoint && value != "none" && value != "legacy" {
			if err := common.MountpointCheck(value); err != nil {
				return Wire{}, invalidValue(def.Name, value, "bad mountpoint '"+value+"'")
			}
		}
	}
	return Wire{Key: def.Name, Value: value}, nil
}

// EncodeProperties encodes a property map in key order.
func EncodeProperties(props map[string]string, t common.DatasetType) ([]Wire, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	wires := make([]Wire, 0, len(keys))
	for _, k := range keys {
		w, err := EncodeProperty(k, props[k], t)
		if err != nil {
			return nil, err
		}
		wires = append(wires, w)
	}
	return wires, nil
}

// ValidateInherit checks that key names an inheritable property.
func ValidateInherit(key string, t common.DatasetType) error {
	if strings.Contains(key, ":") {
		return ValidateUserPropertyName(key)
	}
	p, ok := ParseProp(key)
	if !ok {
		return unsupported(key, t, "invalid property '"+key+"'")
	}
	def, _ := Lookup(p)
	if def.Readonly {
		return unsupported(def.Name, t, "'"+def.Name+"' is readonly")
	}
	if t != common.TypeInvalid && def.Types&t == 0 {
		return unsupported(def.Name, t, fmt.Sprintf("'%s' does not apply to datasets of this type", def.Name))
	}
	if !def.Inherit {
		return unsupported(def.Name, t, "'"+def.Name+"' property cannot be inherited")
	}
	return nil
}
