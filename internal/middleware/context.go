package middleware

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userIDContextKey struct{}

// ContextWithUserID attaches the authenticated user id to the request context.
func ContextWithUserID(ctx context.Context, userID primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext resolves the identity set by the auth middleware.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(userIDContextKey{}).(primitive.ObjectID)
	return userID, ok
}
