package utils

import "golang.org/x/crypto/bcrypt"

func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}

// Kiosk PINs use the same bcrypt scheme as passwords: the stored digest never
// reveals the PIN and comparison cost is constant regardless of match.
func HashPin(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

func ComparePin(hashed string, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pin))
}
