package adoc

// An AttributeMap holds the document attributes the preprocessor evaluates
// conditional directives against. Names are case-sensitive and most
// attributes carry an empty value, which is how AsciiDoc flags work.
type AttributeMap map[string]string

// NewAttributeMap returns an empty attribute map.
func NewAttributeMap() AttributeMap {
	return AttributeMap{}
}

// AttributeMapFrom builds an attribute map from a plain map, typically a
// literal in tests or attribute values decoded from a config file.
func AttributeMapFrom(m map[string]string) AttributeMap {
	am := make(AttributeMap, len(m))
	for k, v := range m {
		am[k] = v
	}
	return am
}

// Contains reports whether name is set.
func (m AttributeMap) Contains(name string) bool {
	_, ok := m[name]
	return ok
}

// Get returns the value of name and whether it is set.
func (m AttributeMap) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Set sets name to value, overwriting any previous value.
func (m AttributeMap) Set(name, value string) {
	m[name] = value
}

// Unset removes name.
func (m AttributeMap) Unset(name string) {
	delete(m, name)
}
