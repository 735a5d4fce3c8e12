// Package services contains server-side business logic. Services accept
// validated commands, talk to repositories through a RepositoryManager and
// return *apperr.Error values the transport layer can render directly.
package services

import (
	"errors"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
)

// repoErr classifies a repository error. Sentinel not-found and duplicate
// errors get client-facing messages; everything else is a database error.
func repoErr(err error, notFound string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, common.ErrorNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, common.ErrorAlreadyExists):
		return apperr.Conflict("resource already exists")
	default:
		return apperr.Database(err)
	}
}
