// Package passhash hashes de contraseña de operadores.
//
// Formato principal: PBKDF2-SHA256 modular ("$pbkdf2-sha256$<rondas>$<sal>$<hash>",
// base64 adaptado sin padding, '.' en lugar de '+'). Se aceptan además hashes
// bcrypt ("$2a$", "$2b$", "$2y$") de archivos de usuarios antiguos.
package passhash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	prefix       = "$pbkdf2-sha256$"
	DefaultRound = 29000
	saltLen      = 16
	keyLen       = 32
)

// ErrUnsupported formato de hash desconocido.
var ErrUnsupported = errors.New("formato de hash no soportado")

var ab64 = base64.RawStdEncoding

func encode(b []byte) string { return strings.ReplaceAll(ab64.EncodeToString(b), "+", ".") }

func decode(s string) ([]byte, error) { return ab64.DecodeString(strings.ReplaceAll(s, ".", "+")) }

// Hash PBKDF2-SHA256 con sal aleatoria y DefaultRound rondas.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return HashWithSalt(password, salt, DefaultRound), nil
}

// HashWithSalt determinista (tests, migraciones).
func HashWithSalt(password string, salt []byte, rounds int) string {
	key := pbkdf2.Key([]byte(password), salt, rounds, keyLen, sha256.New)
	return prefix + strconv.Itoa(rounds) + "$" + encode(salt) + "$" + encode(key)
}

// Verify compara password contra un hash PBKDF2 o bcrypt.
func Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, prefix):
		return verifyPBKDF2(password, hash)
	case strings.HasPrefix(hash, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	default:
		return false, ErrUnsupported
	}
}

func verifyPBKDF2(password, hash string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(hash, prefix), "$")
	if len(parts) != 3 {
		return false, fmt.Errorf("pbkdf2: %w", ErrUnsupported)
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return false, fmt.Errorf("pbkdf2: rondas inválidas %q", parts[0])
	}
	salt, err := decode(parts[1])
	if err != nil {
		return false, fmt.Errorf("pbkdf2: sal: %w", err)
	}
	want, err := decode(parts[2])
	if err != nil {
		return false, fmt.Errorf("pbkdf2: hash: %w", err)
	}
	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
