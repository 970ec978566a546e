package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/zeebo/blake3"
)

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// Fingerprint returns a BLAKE3 digest identifying the exact configuration
// on disk: the per-file hashes of the root config and every include,
// combined in sorted path order. Logged at startup and printed by
// `hookbridge config check` so operators can tell at a glance whether two
// hosts run the same configuration.
func Fingerprint(paths []string) (string, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := blake3.New()
	for _, p := range sorted {
		fileHash, err := ComputeBlake3Hash(p)
		if err != nil {
			return "", err
		}
		h.Write([]byte(fileHash))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
