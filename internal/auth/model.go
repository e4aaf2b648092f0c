package auth

import "time"

// User is a registered account. Username uniqueness is enforced by a
// case-insensitive unique index created by the database migrations.
type User struct {
	ID           int       `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;size:50;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}
