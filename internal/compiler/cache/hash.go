// Package cache keeps compiled schemas keyed by the content that produced
// them, so watch and serve mode skip recompiling unchanged metamodels.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileHasher computes content hashes for cache keys
type FileHasher struct{}

// NewFileHasher creates a new file hasher
func NewFileHasher() *FileHasher {
	return &FileHasher{}
}

// HashFile computes a SHA-256 hash of the file contents
func (fh *FileHasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashContent computes a SHA-256 hash of the given content
func (fh *FileHasher) HashContent(content []byte) string {
	hasher := sha256.New()
	hasher.Write(content)
	return hex.EncodeToString(hasher.Sum(nil))
}

// Key combines a content hash with the settings that shape the output. The
// same metamodel compiled under another policy or format gets another key.
func (fh *FileHasher) Key(contentHash string, s Settings) string {
	return fh.HashContent([]byte(fmt.Sprintf("%s|%s|compact=%t|gzip=%t",
		contentHash, s.Policy, s.Format.Compact, s.Format.Gzip)))
}
