package config

import "os"

// LoadFile reads path, then lexes, parses, validates and materializes it
// into the server records the reactor is built from. Any failure at any
// stage is an *errors.ConfigError carrying {line, col, message}.
func LoadFile(path string) ([]*ServerConfig, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tree, err := Parse(src)
	if err != nil {
		return nil, err
	}

	return Materialize(tree)
}
