package mbean

import (
	"fmt"
	"sort"
	"strings"
)

// Name is a canonical object name of the form "domain:key=value,key=value".
// Properties are kept sorted by key so equal names compare equal.
// The zero Name is the absent handle.
type Name string

// ParseName validates raw and returns its canonical form.
func ParseName(raw string) (Name, error) {
	raw = strings.TrimSpace(raw)
	domain, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing domain separator in %q", ErrInvalidName, raw)
	}
	if !isValidToken(domain) {
		return "", fmt.Errorf("%w: invalid domain %q", ErrInvalidName, domain)
	}
	if strings.TrimSpace(rest) == "" {
		return "", fmt.Errorf("%w: %q has no properties", ErrInvalidName, raw)
	}

	props := make(map[string]string)
	for _, pair := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || !isValidToken(key) {
			return "", fmt.Errorf("%w: invalid property %q", ErrInvalidName, pair)
		}
		if !isValidValue(value) {
			return "", fmt.Errorf("%w: invalid value for %q", ErrInvalidName, key)
		}
		if _, dup := props[key]; dup {
			return "", fmt.Errorf("%w: duplicate property %q", ErrInvalidName, key)
		}
		props[key] = value
	}
	return build(domain, props), nil
}

// NewName builds a canonical name from a domain and key/value pairs.
func NewName(domain string, kv ...string) (Name, error) {
	if len(kv)%2 != 0 {
		return "", fmt.Errorf("%w: odd key/value count", ErrInvalidName)
	}
	var b strings.Builder
	b.WriteString(domain)
	b.WriteByte(':')
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(kv[i])
		b.WriteByte('=')
		b.WriteString(kv[i+1])
	}
	return ParseName(b.String())
}

// MustName is ParseName for package-level constants.
func MustName(raw string) Name {
	name, err := ParseName(raw)
	if err != nil {
		panic(err)
	}
	return name
}

func (n Name) String() string {
	return string(n)
}

func (n Name) IsZero() bool {
	return n == ""
}

func (n Name) Domain() string {
	domain, _, _ := strings.Cut(string(n), ":")
	return domain
}

// Prop returns the value of key, or "" when absent.
func (n Name) Prop(key string) string {
	return n.Props()[key]
}

// Props returns a copy of the name's properties.
func (n Name) Props() map[string]string {
	out := make(map[string]string)
	_, rest, ok := strings.Cut(string(n), ":")
	if !ok || rest == "" {
		return out
	}
	for _, pair := range strings.Split(rest, ",") {
		key, value, _ := strings.Cut(pair, "=")
		out[key] = value
	}
	return out
}

// With returns a copy of n with key set to value.
func (n Name) With(key, value string) (Name, error) {
	props := n.Props()
	props[key] = value
	kv := make([]string, 0, len(props)*2)
	for k, v := range props {
		kv = append(kv, k, v)
	}
	return NewName(n.Domain(), kv...)
}

func build(domain string, props map[string]string) Name {
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(domain)
	b.WriteByte(':')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(props[key])
	}
	return Name(b.String())
}

func isValidToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isAlpha || isDigit || isSep) {
			return false
		}
	}
	return true
}

// values may be empty but cannot carry name delimiters.
func isValidValue(s string) bool {
	return !strings.ContainsAny(s, ":,=\"\n")
}
