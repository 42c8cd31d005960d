package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Signature identifies the current content of a file by path, size and modification time
func Signature(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano()), nil
}

// ContentSignature identifies uploaded bytes
func ContentSignature(name string, content []byte) string {
	sum := sha256.Sum256(content)
	return name + ":" + hex.EncodeToString(sum[:])
}
