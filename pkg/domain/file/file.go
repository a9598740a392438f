package file

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrFileNotFound         = errors.New("file not found")
	ErrInvalidFileReference = errors.New("invalid file reference")
)

// StoredFile is the unit held by the blob store, addressed by conversation and
// content hash.
type StoredFile struct {
	Data []byte `json:"data"`
	Mime string `json:"mime"`
	Name string `json:"name"`
}

// Hash returns the lowercase hex SHA-256 digest used as the content key.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func Key(conversationID, hash string) string {
	return fmt.Sprintf("%s:%s", conversationID, hash)
}
