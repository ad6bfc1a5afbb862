package grpc

import (
	"context"
	"errors"
)

// UserRecord is the minimal display record the user-service returns.
type UserRecord struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// UserClient wraps the user-service internal API.
type UserClient struct {
	conn conn
}

// NewUserClient constructs the wrapper around an established connection.
func NewUserClient(conn conn) *UserClient {
	return &UserClient{conn: conn}
}

type getUserRequest struct {
	UserID int64 `json:"user_id"`
}

type bulkUsersRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkUsersResponse struct {
	Users []UserRecord `json:"users"`
}

// GetUser retrieves a single user's display record.
func (u *UserClient) GetUser(ctx context.Context, userID int) (UserRecord, error) {
	var resp UserRecord
	err := u.conn.Invoke(ctx, "/user.UserInternal/GetUser",
		&getUserRequest{UserID: int64(userID)}, &resp, callOptions()...)
	recordOutcome("user-service", "GetUser", err)
	if err != nil {
		return UserRecord{}, err
	}
	if resp.ID == 0 {
		return UserRecord{}, errors.New("user not found")
	}
	return resp, nil
}

// BulkUsers fetches multiple display records in one call.
func (u *UserClient) BulkUsers(ctx context.Context, ids []int) ([]UserRecord, error) {
	if len(ids) == 0 {
		return []UserRecord{}, nil
	}
	id64s := make([]int64, 0, len(ids))
	for _, id := range ids {
		id64s = append(id64s, int64(id))
	}

	var resp bulkUsersResponse
	err := u.conn.Invoke(ctx, "/user.UserInternal/BulkUsers",
		&bulkUsersRequest{IDs: id64s}, &resp, callOptions()...)
	recordOutcome("user-service", "BulkUsers", err)
	if err != nil {
		return nil, err
	}
	return resp.Users, nil
}
