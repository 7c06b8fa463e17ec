package api

import (
	"context"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

type ctxKey int

const userKey ctxKey = iota

// operatorID identifies requests made with the admin key. The operator has
// no progress, solved log or tasks of its own.
const operatorID = "admin"

func operatorUser() *models.User {
	return &models.User{ID: operatorID, Name: "operator", IsActive: true, IsAdmin: true}
}

// UserFromContext returns the account or operator the request authenticated as
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// ContextWithUser attaches the authenticated account or operator to ctx
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// isOperator reports whether the request authenticated with the admin key
func isOperator(ctx context.Context) bool {
	user := UserFromContext(ctx)
	return user != nil && user.ID == operatorID
}
