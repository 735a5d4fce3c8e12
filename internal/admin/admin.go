package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// Creator is implemented by services.UserService.
type Creator interface {
	CreateAdmin(ctx context.Context, cmd validation.SignupCommand) (*models.User, error)
}

// Prompt asks for username, email and a confirmed password, then creates a
// verified administrator.
func Prompt(ctx context.Context, in *bufio.Reader, w io.Writer, c Creator) (*models.User, error) {
	username, err := GetSimpleText(in, "Username", w)
	if err != nil {
		return nil, err
	}
	email, err := GetSimpleText(in, "Email", w)
	if err != nil {
		return nil, err
	}
	password, err := GetPassword("Password", w)
	if err != nil {
		return nil, err
	}
	confirm, err := GetPassword("Repeat password", w)
	if err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	cmd := validation.SignupCommand{Username: username, Email: email, Password: password}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	user, err := c.CreateAdmin(ctx, cmd)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Admin %s created (id %s)\n", user.Email, user.ID)
	return user, nil
}
