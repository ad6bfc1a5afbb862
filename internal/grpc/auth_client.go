package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
)

// conn is the slice of grpc.ClientConn the clients need; it keeps the
// wrappers testable without a live connection.
type conn interface {
	Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error
}

// AuthClient wraps the auth-service identity verifier.
type AuthClient struct {
	conn conn
}

// NewAuthClient constructs the wrapper around an established connection.
func NewAuthClient(conn conn) *AuthClient {
	return &AuthClient{conn: conn}
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenResponse struct {
	Valid  bool  `json:"valid"`
	UserID int64 `json:"user_id"`
}

// ValidateToken verifies the bearer token and returns the authenticated user id.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (int, error) {
	var resp validateTokenResponse
	err := a.conn.Invoke(ctx, "/auth.AuthService/ValidateToken",
		&validateTokenRequest{Token: token}, &resp, callOptions()...)
	recordOutcome("auth-service", "ValidateToken", err)
	if err != nil {
		return 0, err
	}
	if !resp.Valid || resp.UserID == 0 {
		return 0, errors.New("invalid token")
	}
	return int(resp.UserID), nil
}
