package pool

import (
	"slices"
	"strconv"
	"strings"
)

// Options is a parsed "key=value[,key=value...]" configuration string.
// Every lookup marks its key as consumed; keys nobody consumed are reported
// by Unused so that pool creation can reject them.
type Options struct {
	keys   []string
	values map[string]string
	used   map[string]bool
}

// ParseOptions parses a backend options string. Whitespace around keys and
// values is ignored, empty segments are skipped, and duplicate keys or
// segments without '=' are rejected.
func ParseOptions(s string) (*Options, error) {
	o := &Options{
		values: make(map[string]string),
		used:   make(map[string]bool),
	}
	for _, seg := range strings.Split(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, value, ok := strings.Cut(seg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, InvalidOption(seg, "expected key=value")
		}
		if _, dup := o.values[key]; dup {
			return nil, InvalidOption(key, "given more than once")
		}
		o.keys = append(o.keys, key)
		o.values[key] = strings.TrimSpace(value)
	}
	return o, nil
}

// Has reports whether key was given, without consuming it.
func (o *Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the keys in the order they were given.
func (o *Options) Keys() []string {
	return slices.Clone(o.keys)
}

// String consumes key and returns its raw value, or def when absent.
func (o *Options) String(key, def string) string {
	v, ok := o.values[key]
	if !ok {
		return def
	}
	o.used[key] = true
	return v
}

// Int consumes key and parses it as a non-negative integer. A trailing
// k/K or m/M multiplies by 1024 or 1024*1024.
func (o *Options) Int(key string, def int) (int, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	o.used[key] = true

	mult := 1
	switch {
	case strings.HasSuffix(v, "k"), strings.HasSuffix(v, "K"):
		mult, v = 1<<10, v[:len(v)-1]
	case strings.HasSuffix(v, "m"), strings.HasSuffix(v, "M"):
		mult, v = 1<<20, v[:len(v)-1]
	}
	n, err := strconv.ParseUint(v, 10, strconv.IntSize-1)
	if err != nil {
		return 0, InvalidOption(key, "not a non-negative integer: %q", o.values[key])
	}
	if n > uint64(maxInt/mult) {
		return 0, InvalidOption(key, "value %q overflows", o.values[key])
	}
	return int(n) * mult, nil
}

// Bool consumes key and parses it with strconv.ParseBool.
func (o *Options) Bool(key string, def bool) (bool, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	o.used[key] = true
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, InvalidOption(key, "not a boolean: %q", v)
	}
	return b, nil
}

// Unused returns the keys that were given but never consumed.
func (o *Options) Unused() []string {
	var out []string
	for _, k := range o.keys {
		if !o.used[k] {
			out = append(out, k)
		}
	}
	return out
}

const maxInt = int(^uint(0) >> 1)
