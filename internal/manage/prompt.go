package manage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// ErrNotTerminal is returned when a password must be typed but stdin is not
// a terminal.
var ErrNotTerminal = errors.New("password argument required when stdin is not a terminal")

// TerminalPrompt returns a Prompt that reads a password twice from in
// without echo, writing prompts to w.
func TerminalPrompt(in *os.File, w io.Writer) func(label string) (string, error) {
	return func(label string) (string, error) {
		fd := int(in.Fd())
		if !isTerminal(fd) {
			return "", ErrNotTerminal
		}
		for {
			fmt.Fprintf(w, "%s: ", label)
			p1, err := readPassword(fd)
			fmt.Fprintln(w)
			if err != nil {
				return "", err
			}
			fmt.Fprint(w, "Confirm password: ")
			p2, err := readPassword(fd)
			fmt.Fprintln(w)
			if err != nil {
				return "", err
			}
			pw := strings.TrimSpace(string(p1))
			if pw == "" {
				fmt.Fprintln(w, "password cannot be empty")
				continue
			}
			if pw != strings.TrimSpace(string(p2)) {
				fmt.Fprintln(w, "passwords do not match")
				continue
			}
			return pw, nil
		}
	}
}
