//go:build !windows

package distro

import "errors"

var errNoRegistry = errors.New("registry is only available on windows")

// SystemRegistry stands in for the Windows registry on other platforms;
// every key is missing.
type SystemRegistry struct{}

// NewSystemRegistry returns a registry that cannot open any key.
func NewSystemRegistry() Registry {
	return SystemRegistry{}
}

func (SystemRegistry) OpenKey(string) (Key, error) {
	return nil, errNoRegistry
}
