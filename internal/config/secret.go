package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Secret reference prefixes.
const (
	secretEnvPrefix  = "env:"
	secretFilePrefix = "file:"
)

// ErrSecretNotFound indicates a secret reference points at nothing.
var ErrSecretNotFound = errors.New("secret reference not found")

// ResolveSecret returns the credential a value refers to. "env:NAME" reads
// another environment variable, "file:/path" reads a file and trims it.
// Any other value is returned unchanged.
func ResolveSecret(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, secretEnvPrefix):
		name := strings.TrimSpace(strings.TrimPrefix(value, secretEnvPrefix))
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, name)
		}
		return strings.TrimSpace(v), nil
	case strings.HasPrefix(value, secretFilePrefix):
		path := strings.TrimSpace(strings.TrimPrefix(value, secretFilePrefix))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: file %s", ErrSecretNotFound, path)
			}
			return "", fmt.Errorf("read secret file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return value, nil
	}
}
