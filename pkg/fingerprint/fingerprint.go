// Package fingerprint hashes canonicalized values so unchanged results can be detected
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Generate creates a deterministic SHA256 fingerprint of data with the given
// top-level or dot-notation fields left out
func Generate(data map[string]any, exclude ...string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, field := range exclude {
		excluded[field] = true
	}

	var sb strings.Builder
	canonicalize(&sb, data, excluded, "")

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

func canonicalize(sb *strings.Builder, data any, excluded map[string]bool, path string) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		first := true
		for _, k := range keys {
			fieldPath := k
			if path != "" {
				fieldPath = path + "." + k
			}
			if isExcluded(fieldPath, excluded) {
				continue
			}
			if !first {
				sb.WriteByte(',')
			}
			first = false
			key, _ := json.Marshal(k)
			sb.Write(key)
			sb.WriteByte(':')
			canonicalize(sb, v[k], excluded, fieldPath)
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			canonicalize(sb, item, excluded, path)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(v)
		sb.Write(b)
	}
}

func isExcluded(fieldPath string, excluded map[string]bool) bool {
	if excluded[fieldPath] {
		return true
	}
	for field := range excluded {
		if strings.HasPrefix(fieldPath, field+".") {
			return true
		}
	}
	return false
}
