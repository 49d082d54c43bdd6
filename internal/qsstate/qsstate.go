// Package qsstate maps a set of registered fields to and from a URL query
// string. Each field declares a default and how to hydrate (string to
// value) and dehydrate (value to string) itself.
package qsstate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Values holds typed field values by key.
type Values map[string]any

// Field is a registered query string field.
type Field struct {
	Key     string
	Default any
	// Hydrate parses the raw value. Nil keeps the raw string. An error
	// falls back to Default.
	Hydrate func(string) (any, error)
	// Dehydrate formats a value. Nil uses fmt.Sprint. An empty result
	// omits the key.
	Dehydrate func(any) string
}

// Codec encodes and decodes the registered fields. Encode and Decode are
// pure; Register must not race with them.
type Codec struct {
	fields []Field
	index  map[string]int
}

// New creates a codec with the given fields.
func New(fields ...Field) *Codec {
	c := &Codec{index: make(map[string]int)}
	for _, f := range fields {
		c.Register(f)
	}
	return c
}

// Register adds a field or replaces the one with the same key.
func (c *Codec) Register(f Field) {
	if i, ok := c.index[f.Key]; ok {
		c.fields[i] = f
		return
	}
	c.index[f.Key] = len(c.fields)
	c.fields = append(c.fields, f)
}

// Keys returns the registered keys in registration order.
func (c *Codec) Keys() []string {
	keys := make([]string, len(c.fields))
	for i, f := range c.fields {
		keys[i] = f.Key
	}
	return keys
}

// Encode renders the registered fields present in v, in registration
// order. Nil values, unregistered keys and empty dehydrations are omitted.
func (c *Codec) Encode(v Values) string {
	var b strings.Builder
	for _, f := range c.fields {
		val, ok := v[f.Key]
		if !ok || val == nil {
			continue
		}
		s := f.dehydrate(val)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return b.String()
}

// Decode parses a query string, with or without a leading "?". Every
// registered key is present in the result: absent, empty or malformed
// values take the field default. Decode never fails.
func (c *Codec) Decode(query string) Values {
	query = strings.TrimPrefix(query, "?")
	// ParseQuery keeps every well-formed pair even when it reports an error.
	raw, _ := url.ParseQuery(query)

	out := make(Values, len(c.fields))
	for _, f := range c.fields {
		out[f.Key] = f.Default
		s := raw.Get(f.Key)
		if s == "" {
			continue
		}
		if v, ok := f.hydrate(s); ok {
			out[f.Key] = v
		}
	}
	return out
}

func (f Field) hydrate(s string) (v any, ok bool) {
	if f.Hydrate == nil {
		return s, true
	}
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	v, err := f.Hydrate(s)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (f Field) dehydrate(v any) string {
	if f.Dehydrate == nil {
		return fmt.Sprint(v)
	}
	return f.Dehydrate(v)
}

// String is a plain string field.
func String(key, def string) Field {
	return Field{Key: key, Default: def}
}

// Int is an integer field.
func Int(key string, def int) Field {
	return Field{
		Key:     key,
		Default: def,
		Hydrate: func(s string) (any, error) {
			return strconv.Atoi(s)
		},
		Dehydrate: func(v any) string {
			n, ok := v.(int)
			if !ok {
				return ""
			}
			return strconv.Itoa(n)
		},
	}
}
