package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
)

// formatVersion is bumped when the emitted assembly changes for unchanged
// sources, so cached artifacts are rebuilt.
const formatVersion = "v1"

// Fingerprint hashes everything a Compile of entry could read: the entry
// path and the path and contents of every registered file. Two trees with
// the same fingerprint compile to the same artifact.
func (c *Compiler) Fingerprint(entry string) (string, error) {
	if err := c.Include(entry); err != nil {
		return "", err
	}

	paths := make([]string, 0, len(c.pathToFn))
	for path := range c.pathToFn {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	h := sha256.New()
	h.Write([]byte(formatVersion))
	h.Write([]byte("\x00"))
	h.Write([]byte(absPath(entry)))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		h.Write([]byte("\x00"))
		h.Write([]byte(path))
		h.Write([]byte("\x00"))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
