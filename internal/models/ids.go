package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ID prefixes per entity.
const (
	ProjectPrefix = "prj"
	ItemPrefix    = "itm"
	SprintPrefix  = "spr"
)

// GenerateID creates an ID in prefix-xxxxxx format (6-char hex).
func GenerateID(prefix string) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("models: generate %s ID: %w", prefix, err)
	}
	return prefix + "-" + hex.EncodeToString(b), nil
}
