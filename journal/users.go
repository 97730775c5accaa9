package journal

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultRole = "trader"

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// checkUser verifies a stored user against a login attempt.
func checkUser(u User, password string) (User, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrWrongPassword
	}
	if !u.Active {
		return User{}, ErrUserInactive
	}
	return u, nil
}

func validateUser(u User) error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Balance < 0 {
		return errors.New("balance must be >= 0")
	}
	return nil
}
