package directory

import (
	"context"
	"fmt"

	grpcclient "messaging-service/internal/grpc"
)

// Profile is the display record used to label conversations and messages.
type Profile struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Directory resolves user ids to display records. Lookup is batched by
// contract; ids absent from the result simply do not exist.
type Directory interface {
	Lookup(ctx context.Context, ids []int) (map[int]Profile, error)
}

// userLookup is the slice of the user-service client the directory needs.
type userLookup interface {
	BulkUsers(ctx context.Context, ids []int) ([]grpcclient.UserRecord, error)
}

// ServiceDirectory resolves profiles through the user-service.
type ServiceDirectory struct {
	users userLookup
}

// NewServiceDirectory constructs a ServiceDirectory.
func NewServiceDirectory(users userLookup) *ServiceDirectory {
	return &ServiceDirectory{users: users}
}

// Lookup fetches all requested display records in a single upstream call.
func (d *ServiceDirectory) Lookup(ctx context.Context, ids []int) (map[int]Profile, error) {
	if len(ids) == 0 {
		return map[int]Profile{}, nil
	}

	records, err := d.users.BulkUsers(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("bulk users: %w", err)
	}

	profiles := make(map[int]Profile, len(records))
	for _, rec := range records {
		profiles[int(rec.ID)] = Profile{
			ID:          int(rec.ID),
			DisplayName: rec.DisplayName,
			AvatarURL:   rec.AvatarURL,
		}
	}
	return profiles, nil
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
