package launch

import "sort"

// Well-known option keys supplied by the host at launch. Keys are lower-case:
// configured options are folded to lower case on load, and command-line
// options are folded the same way.
const (
	KeyURL                = "url"
	KeySourceApplication  = "source_application"
	KeyRemoteNotification = "remote_notification"
	KeyLocation           = "location"
	KeyShortcutItem       = "shortcut_item"
)

// Options is the immutable set of launch options handed over by the host.
// The zero value is an empty option set.
type Options struct {
	values map[string]any
}

// NewOptions copies values into a new Options. Later changes to values are
// not observed by the returned Options.
func NewOptions(values map[string]any) Options {
	if len(values) == 0 {
		return Options{}
	}
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Options{values: cp}
}

// Get returns the value stored under key. Only the top-level set is copied on
// construction; a map or slice value is shared with the caller that built the
// Options and must be treated as read-only.
func (o Options) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// String returns the value under key when it is a string, "" otherwise.
func (o Options) String(key string) string {
	s, _ := o.values[key].(string)
	return s
}

// Len returns the number of options.
func (o Options) Len() int {
	return len(o.values)
}

// Keys returns the option keys in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying values.
func (o Options) Map() map[string]any {
	cp := make(map[string]any, len(o.values))
	for k, v := range o.values {
		cp[k] = v
	}
	return cp
}
