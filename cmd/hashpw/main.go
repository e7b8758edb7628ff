// Command hashpw prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpw 'correct horse battery staple'
//
// Without an argument the password is read from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sakif/event-registration/internal/auth"
)

func main() {
	password, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}

	hash, err := auth.NewPasswordService().Hash(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
