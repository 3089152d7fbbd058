package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type userMetadataRecord struct {
	bun.BaseModel `bun:"table:sync_user_metadata,alias:sum"`

	ID               string     `bun:"id,pk"`
	Identity         string     `bun:"identity,notnull"`
	ServerURL        string     `bun:"server_url,notnull"`
	RefreshToken     string     `bun:"refresh_token,notnull"`
	MarkedForRemoval bool       `bun:"marked_for_removal,notnull"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt        *time.Time `bun:"deleted_at,soft_delete"`
}
