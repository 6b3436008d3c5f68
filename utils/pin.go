package utils

import "golang.org/x/crypto/bcrypt"

// Manager PIN dipakai untuk menyetujui diskon di atas ambang konfigurasi.
// Hash-nya datang dari env (MANAGER_PIN_HASH), bukan dari database terminal.

func HashManagerPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckManagerPIN(pin, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
