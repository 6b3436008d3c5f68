package utils

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Device token untuk API lokal terminal. UI terminal login sekali saat boot
// dan memakai token ini di setiap request; tidak ada manajemen user di sini
// (autentikasi operator adalah urusan back office).

type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Default untuk development, sama dengan .env.example
		secret = "PosTerminalDevSecret"
	}
	return []byte(secret)
}

// GenerateDeviceToken membuat token untuk satu device, berlaku 30 hari.
func GenerateDeviceToken(deviceID string) (string, error) {
	claims := &DeviceClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseDeviceToken memvalidasi token dan mengembalikan claims-nya.
func ParseDeviceToken(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token tidak valid")
	}
	if claims.DeviceID == "" {
		return nil, errors.New("device id kosong di token")
	}
	return claims, nil
}
