package session

import (
	"bankops/bank"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// EncryptedResolver handles institutions that store the credential encrypted: the
// token lives in one storage location and the key material in a second one. both
// reads are ambient-state only, decryption happens in process.
type EncryptedResolver struct {
	TokenSource Source
	KeySource   Source
}

func (r EncryptedResolver) SessionID(store Store) (string, error) {
	tokenB64 := r.TokenSource.read(store)
	keyMaterial := r.KeySource.read(store)
	if tokenB64 == "" || keyMaterial == "" {
		return "", fmt.Errorf("encrypted token or key material absent: %w", bank.ErrSessionNotFound)
	}

	sessionID, err := decryptToken(tokenB64, keyMaterial)
	if err != nil {
		return "", fmt.Errorf("decrypt session token: %w: %w", err, bank.ErrSessionNotFound)
	}
	return sessionID, nil
}

// decryptToken decrypts a base64 AES-GCM token. the 12-byte nonce is prepended to
// the ciphertext, matching how the institutions' web clients seal it.
func decryptToken(tokenB64 string, keyMaterial string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(tokenB64)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	key := sha256.Sum256([]byte(keyMaterial))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", fmt.Errorf("make cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("make gcm: %w", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("token is shorter than the %d byte nonce", gcm.NonceSize())
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	return string(plaintext), nil
}

// SealToken is the inverse of decryptToken. the production flow never encrypts, this
// exists so tests and fixtures can produce tokens the resolver accepts.
func SealToken(sessionID string, keyMaterial string, nonce []byte) (string, error) {
	key := sha256.Sum256([]byte(keyMaterial))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", fmt.Errorf("make cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("make gcm: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("nonce must be %d bytes, got %d", gcm.NonceSize(), len(nonce))
	}

	sealed := append(append([]byte{}, nonce...), gcm.Seal(nil, nonce, []byte(sessionID), nil)...)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
