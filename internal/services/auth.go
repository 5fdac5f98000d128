package services

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator checks the single admin account against a bcrypt hash.
type Authenticator struct {
	username string
	hash     []byte
}

// NewAuthenticator uses passwordHash when given, otherwise hashes password.
func NewAuthenticator(username, password, passwordHash string) (*Authenticator, error) {
	if username == "" {
		return nil, errors.New("admin username is empty")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		return &Authenticator{username: username, hash: []byte(passwordHash)}, nil
	}
	if password == "" {
		return nil, errors.New("admin password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Authenticator{username: username, hash: hash}, nil
}

// Authenticate reports whether the pair matches the admin account.
func (a *Authenticator) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}
