package distro

import "errors"

// ErrNotString is returned by Key.StringValue when the value exists but is
// not a plain string (REG_SZ).
var ErrNotString = errors.New("value is not a string")

// ErrNotExist is returned when a key or value does not exist.
var ErrNotExist = errors.New("registry entry does not exist")

// Registry opens keys below the current user's hive.
type Registry interface {
	OpenKey(path string) (Key, error)
}

// Key is an open registry key. Callers must Close every key they open.
type Key interface {
	OpenSubKey(name string) (Key, error)
	StringValue(name string) (string, error)
	Close() error
}

// MemoryRegistry is an in-memory Registry. Paths are backslash separated
// and compared exactly.
type MemoryRegistry struct {
	Keys map[string]map[string]any
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{Keys: make(map[string]map[string]any)}
}

// Set stores value under path. A string value behaves as REG_SZ; any other
// type behaves as a non-string value.
func (m *MemoryRegistry) Set(path, name string, value any) {
	values, ok := m.Keys[path]
	if !ok {
		values = make(map[string]any)
		m.Keys[path] = values
	}
	values[name] = value
}

// AddKey creates an empty key at path.
func (m *MemoryRegistry) AddKey(path string) {
	if _, ok := m.Keys[path]; !ok {
		m.Keys[path] = make(map[string]any)
	}
}

// OpenKey opens the key at path, or returns ErrNotExist.
func (m *MemoryRegistry) OpenKey(path string) (Key, error) {
	if _, ok := m.Keys[path]; !ok {
		return nil, ErrNotExist
	}
	return &memoryKey{registry: m, path: path}, nil
}

type memoryKey struct {
	registry *MemoryRegistry
	path     string
	closed   bool
}

func (k *memoryKey) OpenSubKey(name string) (Key, error) {
	return k.registry.OpenKey(k.path + `\` + name)
}

func (k *memoryKey) StringValue(name string) (string, error) {
	v, ok := k.registry.Keys[k.path][name]
	if !ok {
		return "", ErrNotExist
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrNotString
	}
	return s, nil
}

func (k *memoryKey) Close() error {
	k.closed = true
	return nil
}
