//go:build windows

package distro

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// SystemRegistry reads HKEY_CURRENT_USER.
type SystemRegistry struct{}

// NewSystemRegistry returns the registry of the current user.
func NewSystemRegistry() Registry {
	return SystemRegistry{}
}

func (SystemRegistry) OpenKey(path string) (Key, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, path, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("open HKCU\\%s: %w", path, err)
	}
	return systemKey{k}, nil
}

type systemKey struct {
	key registry.Key
}

func (k systemKey) OpenSubKey(name string) (Key, error) {
	sub, err := registry.OpenKey(k.key, name, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("open subkey %s: %w", name, err)
	}
	return systemKey{sub}, nil
}

func (k systemKey) StringValue(name string) (string, error) {
	val, valtype, err := k.key.GetStringValue(name)
	if errors.Is(err, registry.ErrUnexpectedType) {
		return "", ErrNotString
	}
	if err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	if valtype != registry.SZ {
		return "", ErrNotString
	}
	return val, nil
}

func (k systemKey) Close() error {
	return k.key.Close()
}
