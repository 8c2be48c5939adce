package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxRoleKey   ctxKey = "role"
)

type Role string

const (
	RoleBuyer  Role = "ROLE_BUYER"
	RoleSeller Role = "ROLE_SELLER"
	RoleAdmin  Role = "ROLE_ADMIN"
)

// Идентичность кладётся в контекст только доверенным слоем (middleware поверх
// introspect внешнего Identity-сервиса). Сервисы никогда не берут id из запроса.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}
