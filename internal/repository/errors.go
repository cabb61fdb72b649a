package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// PostgreSQL error codes the repositories translate.
const (
	pqInsufficientPrivilege = pq.ErrorCode("42501")
	pqQueryCanceled         = pq.ErrorCode("57014")
	pqAdminShutdown         = pq.ErrorCode("57P01")
	pqCrashShutdown         = pq.ErrorCode("57P02")
	pqCannotConnectNow      = pq.ErrorCode("57P03")
	pqTooManyConnections    = pq.ErrorCode("53300")
	pqUniqueViolation       = pq.ErrorCode("23505")
	pqForeignKeyViolation   = pq.ErrorCode("23503")
	pqConnectionException   = pq.ErrorClass("08")
)

// ErrNoRowsAffected signals a conditional update or delete that matched nothing.
var ErrNoRowsAffected = errors.New("no rows affected")

// storageError classifies a database failure. Row level security rejections
// become PermissionDenied and transient connectivity failures become the
// retryable StorageUnavailable; sql.ErrNoRows is returned untouched so callers
// keep distinguishing "not found".
func storageError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqInsufficientPrivilege:
			return appErrors.Wrap(err, appErrors.ErrPermissionDenied.Code, appErrors.ErrPermissionDenied.Status, op+": permission denied by storage")
		case pqErr.Code == pqQueryCanceled,
			pqErr.Code == pqAdminShutdown,
			pqErr.Code == pqCrashShutdown,
			pqErr.Code == pqCannotConnectNow,
			pqErr.Code == pqTooManyConnections,
			pqErr.Code.Class() == pqConnectionException:
			return unavailable(err, op)
		case pqErr.Code == pqUniqueViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, op+": duplicate record")
		case pqErr.Code == pqForeignKeyViolation:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, op+": referenced record does not exist")
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return unavailable(err, op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return unavailable(err, op)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func unavailable(err error, op string) error {
	wrapped := appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, op+": storage unavailable")
	wrapped.Retryable = true
	return wrapped
}
