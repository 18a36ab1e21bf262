package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

var (
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate")
	// ErrInvalidReference indicates a foreign key did not resolve.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrTimeout indicates the store did not answer before the context deadline.
	ErrTimeout = errors.New("store timeout")
)

// translate maps driver and GORM errors onto the package sentinels. The
// original error stays in the chain for logging.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	// glebarez/sqlite often returns plain-text errors for constraint violations.
	low := strings.ToLower(err.Error())
	switch {
	case isDuplicate(err, low):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		strings.Contains(low, "foreign key constraint failed"),
		strings.Contains(low, "violates foreign key constraint"):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	case isUnavailable(err, low):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func isDuplicate(err error, low string) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

func isUnavailable(err error, low string) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(low, "database is closed") ||
		strings.Contains(low, "connection refused") ||
		strings.Contains(low, "broken pipe") ||
		strings.Contains(low, "unable to open database")
}
