package domain

// Metadata is the free-form nested metadata document the platform attaches to
// models, items and annotations.
type Metadata map[string]interface{}

// Section returns the nested map stored under key, creating it when missing or
// when the stored value is not a map.
func (m Metadata) Section(key string) Metadata {
	switch v := m[key].(type) {
	case Metadata:
		return v
	case map[string]interface{}:
		return Metadata(v)
	}
	s := Metadata{}
	m[key] = s
	return s
}

// Lookup walks path and returns the value found there.
func (m Metadata) Lookup(path ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(m)
	for _, p := range path {
		var next interface{}
		switch node := cur.(type) {
		case Metadata:
			v, ok := node[p]
			if !ok {
				return nil, false
			}
			next = v
		case map[string]interface{}:
			v, ok := node[p]
			if !ok {
				return nil, false
			}
			next = v
		default:
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// LookupMap is Lookup restricted to map values. Missing paths yield nil.
func (m Metadata) LookupMap(path ...string) map[string]interface{} {
	v, ok := m.Lookup(path...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case Metadata:
		return map[string]interface{}(t)
	case map[string]interface{}:
		return t
	}
	return nil
}

// SetSystemTag sets metadata.system.tags.<tag> = true.
func (m Metadata) SetSystemTag(tag string) {
	m.Section("system").Section("tags")[tag] = true
}

// Delete removes the key at the end of path. It reports whether anything was removed.
func (m Metadata) Delete(path ...string) bool {
	if len(path) == 0 {
		return false
	}
	parent := map[string]interface{}(m)
	if len(path) > 1 {
		parent = m.LookupMap(path[:len(path)-1]...)
		if parent == nil {
			return false
		}
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	return true
}
