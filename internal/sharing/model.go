package sharing

import (
	"fmt"
	"time"

	"github.com/veshchi/backend/internal/auth"
)

// AccessLevel is the tagged permission granted to a recipient. Only view
// access is issued today; edit is reserved so adding it needs no schema
// change.
type AccessLevel string

const (
	// AccessView lets the grantee read the published snapshot.
	AccessView AccessLevel = "view"
	// AccessEdit is reserved and never issued.
	AccessEdit AccessLevel = "edit"
)

// ParseAccessLevel validates a raw access-level value.
func ParseAccessLevel(raw string) (AccessLevel, error) {
	switch AccessLevel(raw) {
	case AccessView, AccessEdit:
		return AccessLevel(raw), nil
	default:
		return "", fmt.Errorf("sharing: unknown access level %q", raw)
	}
}

// SharedList is a published value-copy snapshot of a local checklist. The
// snapshot never references the owner's live list.
type SharedList struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement"`
	ListID    string    `gorm:"column:list_id;size:50;not null;index"`
	ListName  string    `gorm:"column:list_name;size:200;not null"`
	OwnerID   int       `gorm:"column:owner_id;not null;index"`
	ListData  string    `gorm:"column:list_data;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`

	Owner    auth.User          `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Accesses []SharedListAccess `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
}

// TableName exposes the table backing published lists.
func (SharedList) TableName() string {
	return "shared_lists"
}

// SharedListAccess authorizes one user to read one published list. The
// (list, user) pair is unique; the owner needs no grant row.
type SharedListAccess struct {
	ID          int         `gorm:"column:id;primaryKey;autoIncrement"`
	ListID      int         `gorm:"column:list_id;not null;uniqueIndex:idx_shared_list_access_pair,priority:1"`
	UserID      int         `gorm:"column:user_id;not null;uniqueIndex:idx_shared_list_access_pair,priority:2"`
	AccessLevel AccessLevel `gorm:"column:access_level;size:20;not null;default:view"`
	CreatedAt   time.Time   `gorm:"column:created_at;not null"`

	User auth.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName exposes the table backing access grants.
func (SharedListAccess) TableName() string {
	return "shared_list_access"
}
