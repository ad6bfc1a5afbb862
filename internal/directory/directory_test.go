package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grpcclient "messaging-service/internal/grpc"
)

type fakeUsers struct {
	calls   [][]int
	records []grpcclient.UserRecord
	err     error
}

func (f *fakeUsers) BulkUsers(ctx context.Context, ids []int) ([]grpcclient.UserRecord, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestServiceDirectoryLookup(t *testing.T) {
	users := &fakeUsers{records: []grpcclient.UserRecord{
		{ID: 1, DisplayName: "alice"},
		{ID: 2, DisplayName: "bob", AvatarURL: "http://a/2.png"},
	}}
	dir := NewServiceDirectory(users)

	profiles, err := dir.Lookup(context.Background(), []int{1, 2, 1})

	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alice", profiles[1].DisplayName)
	assert.Equal(t, "http://a/2.png", profiles[2].AvatarURL)
	require.Len(t, users.calls, 1)
	assert.Equal(t, []int{1, 2}, users.calls[0])
}

func TestServiceDirectoryEmptyIDs(t *testing.T) {
	users := &fakeUsers{}
	dir := NewServiceDirectory(users)

	profiles, err := dir.Lookup(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Empty(t, users.calls)
}

func TestServiceDirectoryUpstreamError(t *testing.T) {
	users := &fakeUsers{err: assert.AnError}
	dir := NewServiceDirectory(users)

	_, err := dir.Lookup(context.Background(), []int{1})

	require.Error(t, err)
}

func TestServiceDirectoryMissingUsersOmitted(t *testing.T) {
	users := &fakeUsers{records: []grpcclient.UserRecord{{ID: 1, DisplayName: "alice"}}}
	dir := NewServiceDirectory(users)

	profiles, err := dir.Lookup(context.Background(), []int{1, 99})

	require.NoError(t, err)
	_, ok := profiles[99]
	assert.False(t, ok)
}
