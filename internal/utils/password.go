package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes the plaintext before it is persisted.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
