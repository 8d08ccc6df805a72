package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Digest returns the SHA-256 of the detection parameters rendered as YAML.
// Two runs with equal digests over equal inputs produce identical output.
func (c *Config) Digest() (string, error) {
	data, err := yaml.Marshal(c.Detection)
	if err != nil {
		return "", fmt.Errorf("marshal detection config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// YAML renders the full effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
