package entities

import (
	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Email     string    `gorm:"size:254;uniqueIndex" json:"email"`
	Username  string    `gorm:"size:150;uniqueIndex" json:"username"`
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	Password  string    `json:"-"`
	AvatarURL string    `json:"avatar,omitempty"`

	Recipes []*Recipe `gorm:"foreignKey:AuthorID"`
	Timestamp
}

type Subscription struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID   uuid.UUID `gorm:"uniqueIndex:idx_subscriber_author" json:"user_id"`
	AuthorID uuid.UUID `gorm:"uniqueIndex:idx_subscriber_author" json:"author_id"`

	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Timestamp
}
