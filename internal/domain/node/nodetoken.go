package node

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenPrefix starts every plain node token.
const TokenPrefix = "gpn_"

// NodeToken holds the hash of a node's token. The plain token is never stored.
type NodeToken struct {
	tokenHash string
}

// GenerateNodeToken creates a random token and its hash.
func GenerateNodeToken() (plainToken string, token *NodeToken, err error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random token: %w", err)
	}

	plainToken = TokenPrefix + base64.RawURLEncoding.EncodeToString(tokenBytes)
	return plainToken, &NodeToken{tokenHash: HashToken(plainToken)}, nil
}

// NewNodeToken wraps a stored hash after checking its shape.
func NewNodeToken(tokenHash string) (*NodeToken, error) {
	if len(tokenHash) != sha256.Size*2 {
		return nil, fmt.Errorf("invalid token hash length (expected 64 hex characters)")
	}
	if _, err := hex.DecodeString(tokenHash); err != nil {
		return nil, fmt.Errorf("token hash must be a valid hexadecimal string")
	}
	return &NodeToken{tokenHash: strings.ToLower(tokenHash)}, nil
}

func (nt *NodeToken) Hash() string {
	return nt.tokenHash
}

// Verify compares plainToken against the stored hash in constant time.
func (nt *NodeToken) Verify(plainToken string) bool {
	return verifyTokenHash(plainToken, nt.tokenHash)
}

// HashToken returns the hex SHA-256 of a plain token.
func HashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}

func verifyTokenHash(plainToken, tokenHash string) bool {
	if !strings.HasPrefix(plainToken, TokenPrefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(plainToken)), []byte(tokenHash)) == 1
}
