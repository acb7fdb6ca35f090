package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// hashCost is pinned so seeded and registered accounts hash identically
// across deployments; bumping it only affects newly written hashes.
const hashCost = 12

var ErrEmptyPassword = errors.New("password must not be empty")

func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
