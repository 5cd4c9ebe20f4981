// Package manage implements the echost-manage administrative commands.
package manage

import (
	"errors"
	"fmt"
	"strings"
)

// Command is one administrative subcommand.
type Command int

const (
	AddUser Command = iota + 1
	DelUser
	SetPass
	DelFile
	MvFile
	ListUsers
	ListFiles
	Cleanup
)

type verb struct {
	name    string
	cmd     Command
	minArgs int
	maxArgs int
	usage   string
	help    string
}

var commands = []verb{
	{"adduser", AddUser, 1, 2, "adduser <username> [password]", "adds a user"},
	{"deluser", DelUser, 1, 1, "deluser <username>", "delete a user and hide their files"},
	{"setpass", SetPass, 1, 2, "setpass <username> [password]", "change a users password"},
	{"delfile", DelFile, 2, 2, "delfile <username> <filename>", "delete a specific file"},
	{"mvfile", MvFile, 3, 3, "mvfile <username> <old> <new>", "rename a file"},
	{"lsusers", ListUsers, 0, 0, "lsusers", "list users"},
	{"lsfiles", ListFiles, 0, 1, "lsfiles [username]", "list files, optionally of one user"},
	{"cleanup", Cleanup, 0, 0, "cleanup", "delete orphaned files"},
}

func (c Command) String() string {
	for _, s := range commands {
		if s.cmd == c {
			return s.name
		}
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Invocation is a parsed command line.
type Invocation struct {
	Command Command
	Args    []string
}

// Arg returns the i-th argument or "" when it was omitted.
func (inv Invocation) Arg(i int) string {
	if i < len(inv.Args) {
		return inv.Args[i]
	}
	return ""
}

var (
	// ErrNoCommand is returned by Parse for an empty command line.
	ErrNoCommand = errors.New("missing subcommand")
	// ErrUnknownCommand is returned for verbs that are not recognised.
	ErrUnknownCommand = errors.New("subcommand not found")
)

// ArityError reports a wrong number of arguments for a known command.
type ArityError struct {
	Usage string
}

func (e *ArityError) Error() string {
	return "usage: echost-manage " + e.Usage
}

// Parse matches args[0] against the known subcommands and checks the number
// of remaining arguments.
func Parse(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{}, ErrNoCommand
	}
	for _, s := range commands {
		if s.name != args[0] {
			continue
		}
		rest := args[1:]
		if len(rest) < s.minArgs || len(rest) > s.maxArgs {
			return Invocation{}, &ArityError{Usage: s.usage}
		}
		return Invocation{Command: s.cmd, Args: rest}, nil
	}
	return Invocation{}, ErrUnknownCommand
}

// Usage is the help text printed when no subcommand is given.
func Usage() string {
	var sb strings.Builder
	sb.WriteString("echost-manage [-config path] <subcommand>\n\nAVAILABLE COMMANDS\n\n")
	for _, s := range commands {
		fmt.Fprintf(&sb, "    %-34s %s\n", s.usage, s.help)
	}
	return sb.String()
}
