package errx

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(fmt.Errorf("%w: %w", ErrNotFound, err), http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapSQL maps database/sql errors to AppError with appropriate status codes.
func WrapSQL(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(fmt.Errorf("%w: %w", ErrNotFound, err), http.StatusNotFound, NotFoundMessage)
	}
	return New(err, http.StatusInternalServerError, StorageErrorMessage)
}
