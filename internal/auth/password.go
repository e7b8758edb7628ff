package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used by Hash.
const defaultCost = 12

// ErrInvalidCredentials is returned by Credentials.Check on any mismatch.
// It deliberately does not say whether the login or the password was wrong.
var ErrInvalidCredentials = errors.New("auth: invalid login or password")

// PasswordService provides bcrypt hashing and verification. The cost is a
// field so tests can use the minimum.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes plaintext with bcrypt. The result is what goes into
// ADMIN_PASSWORD_HASH.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates anything longer.
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil if plaintext matches hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// Credentials is the single organizer account, configured from the
// environment. Either a plaintext password or a bcrypt hash is set; the hash
// wins when both are.
type Credentials struct {
	login        string
	password     string
	passwordHash string
	passwords    *PasswordService
}

func NewCredentials(login, password, passwordHash string) (*Credentials, error) {
	if login == "" {
		return nil, errors.New("auth: admin login is required")
	}
	if password == "" && passwordHash == "" {
		return nil, errors.New("auth: admin password or password hash is required")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("auth: admin password hash is not a bcrypt hash: %w", err)
		}
	}
	return &Credentials{
		login:        login,
		password:     password,
		passwordHash: passwordHash,
		passwords:    NewPasswordService(),
	}, nil
}

// Check compares login and password in constant time.
func (c *Credentials) Check(login, password string) error {
	loginOK := subtle.ConstantTimeCompare([]byte(login), []byte(c.login)) == 1

	var passwordOK bool
	if c.passwordHash != "" {
		passwordOK = c.passwords.Verify(c.passwordHash, password) == nil
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
	}

	if !loginOK || !passwordOK {
		return ErrInvalidCredentials
	}
	return nil
}
