package sqlstore

import (
	"time"

	"github.com/goliatone/go-syncauth/core"
)

func newUserMetadataRecord(identity string, serverURL string, token string, now time.Time) *userMetadataRecord {
	return &userMetadataRecord{
		Identity:         identity,
		ServerURL:        serverURL,
		RefreshToken:     token,
		MarkedForRemoval: false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (r *userMetadataRecord) toDomain() core.UserMetadata {
	if r == nil {
		return core.UserMetadata{}
	}
	return core.UserMetadata{
		Identity:         r.Identity,
		ServerURL:        r.ServerURL,
		RefreshToken:     r.RefreshToken,
		MarkedForRemoval: r.MarkedForRemoval,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
