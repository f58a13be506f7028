package app

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

// RequireVersionMatch fails with an OptimisticLockError when the caller's
// expected version differs from the persisted one. It must run before any
// field of the entity is touched.
func RequireVersionMatch(entity string, code uuid.UUID, persisted, expected int64) error {
	if persisted != expected {
		return &domain.OptimisticLockError{Entity: entity, Key: code.String()}
	}
	return nil
}

// requireByCode loads an entity by its opaque code, reporting a miss as a
// NotFoundError for entity.
func requireByCode[T any](
	ctx context.Context,
	find func(context.Context, uuid.UUID) (T, error),
	entity string,
	code uuid.UUID,
) (T, error) {
	v, err := find(ctx, code)
	if err != nil {
		var zero T
		return zero, translate(err, entity, code.String())
	}
	return v, nil
}

// translate maps the adapter sentinels onto the domain error taxonomy.
func translate(err error, entity, key string) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return &domain.NotFoundError{Entity: entity, Key: key}
	case errors.Is(err, ports.ErrVersionConflict):
		return &domain.OptimisticLockError{Entity: entity, Key: key}
	}
	return err
}

func idKey(id int64) string {
	return "id " + strconv.FormatInt(id, 10)
}
