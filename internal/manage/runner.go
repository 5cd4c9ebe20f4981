package manage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"echost/internal/apperr"
	"echost/internal/db"
	"echost/internal/files"
)

// Accounts is the part of auth.Service the CLI uses.
type Accounts interface {
	AddUser(ctx context.Context, username, password string) error
	SetPassword(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string) error
}

// Users lists account names.
type Users interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// Files is the part of files.Gateway the CLI uses.
type Files interface {
	Delete(ctx context.Context, owner, filename string) error
	Rename(ctx context.Context, owner, oldName, newName string) error
	List(ctx context.Context, owner string) ([]db.File, error)
	Sweep(ctx context.Context) (files.SweepResult, error)
}

// Runner executes parsed invocations and reports to Out.
type Runner struct {
	Accounts Accounts
	Users    Users
	Files    Files
	Out      io.Writer
	// Prompt asks for a password that was omitted on the command line.
	// When nil, omitting the password is an error.
	Prompt func(label string) (string, error)
}

// Run executes inv. Expected outcomes such as an unknown user are reported
// on Out and are not errors.
func (r *Runner) Run(ctx context.Context, inv Invocation) error {
	switch inv.Command {
	case AddUser:
		return r.addUser(ctx, inv.Arg(0), inv.Arg(1))
	case DelUser:
		return r.delUser(ctx, inv.Arg(0))
	case SetPass:
		return r.setPass(ctx, inv.Arg(0), inv.Arg(1))
	case DelFile:
		return r.delFile(ctx, inv.Arg(0), inv.Arg(1))
	case MvFile:
		return r.mvFile(ctx, inv.Arg(0), inv.Arg(1), inv.Arg(2))
	case ListUsers:
		return r.listUsers(ctx)
	case ListFiles:
		return r.listFiles(ctx, inv.Arg(0))
	case Cleanup:
		return r.cleanup(ctx)
	default:
		return ErrUnknownCommand
	}
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.Out, format+"\n", args...)
}

func (r *Runner) password(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	if r.Prompt == nil {
		return "", apperr.Validation("password is required")
	}
	return r.Prompt("Password")
}

func (r *Runner) addUser(ctx context.Context, username, password string) error {
	password, err := r.password(password)
	if err != nil {
		return err
	}
	err = r.Accounts.AddUser(ctx, username, password)
	switch {
	case errors.Is(err, apperr.ErrUserExists):
		r.printf("User %s already exists", username)
	case err != nil:
		return err
	default:
		r.printf("Created user %s", username)
	}
	return nil
}

func (r *Runner) delUser(ctx context.Context, username string) error {
	err := r.Accounts.DeleteUser(ctx, username)
	switch {
	case errors.Is(err, apperr.ErrUserNotFound):
		r.printf("User %s not found.", username)
	case err != nil:
		return err
	default:
		r.printf("Deleted user %s. Run echost-manage cleanup to delete orphaned files", username)
	}
	return nil
}

func (r *Runner) setPass(ctx context.Context, username, password string) error {
	password, err := r.password(password)
	if err != nil {
		return err
	}
	err = r.Accounts.SetPassword(ctx, username, password)
	switch {
	case errors.Is(err, apperr.ErrUserNotFound):
		r.printf("User %s not found.", username)
	case err != nil:
		return err
	default:
		r.printf("Password of user %s updated.", username)
	}
	return nil
}

func (r *Runner) delFile(ctx context.Context, username, filename string) error {
	err := r.Files.Delete(ctx, username, filename)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		r.printf("File %s/%s not found.", username, filename)
	case err != nil:
		return err
	default:
		r.printf("File %s/%s deleted", username, filename)
	}
	return nil
}

func (r *Runner) mvFile(ctx context.Context, username, oldName, newName string) error {
	err := r.Files.Rename(ctx, username, oldName, newName)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		r.printf("File %s/%s not found.", username, oldName)
	case errors.Is(err, apperr.ErrFilenameTaken):
		r.printf("File %s/%s already exists.", username, newName)
	case err != nil:
		return err
	default:
		r.printf("File %s/%s renamed to %s", username, oldName, newName)
	}
	return nil
}

func (r *Runner) listUsers(ctx context.Context) error {
	users, err := r.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		r.printf("%s", u)
	}
	return nil
}

func (r *Runner) listFiles(ctx context.Context, owner string) error {
	list, err := r.Files.List(ctx, owner)
	if err != nil {
		return err
	}
	for _, f := range list {
		r.printf("%s/%s\t%s", f.Owner, f.Filename, f.Path)
	}
	return nil
}

func (r *Runner) cleanup(ctx context.Context) error {
	res, err := r.Files.Sweep(ctx)
	for _, p := range res.RemovedObjects {
		r.printf("Deleting orphaned file %s", p)
	}
	for _, f := range res.RemovedRows {
		r.printf("Removing dangling entry %s/%s", f.Owner, f.Filename)
	}
	if err != nil {
		return err
	}
	if res.Failures > 0 {
		return fmt.Errorf("cleanup: %d item(s) could not be removed", res.Failures)
	}
	r.printf("Cleanup done")
	return nil
}
