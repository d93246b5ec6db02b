package model

import "time"

// User is an account in the user directory. The engine only reads display
// info from it; account management lives at the HTTP layer.
type User struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username       string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"size:255;not null"`
	DisplayName    string    `json:"displayName" gorm:"size:100"`
	ProfilePicture string    `json:"profilePicture" gorm:"size:767"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DisplayInfo is the projection of a user the engine hands out with feeds.
type DisplayInfo struct {
	ID             int64  `json:"id"`
	DisplayName    string `json:"displayName"`
	ProfilePicture string `json:"profilePicture"`
}

// Display returns the user's public projection.
func (u *User) Display() DisplayInfo {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return DisplayInfo{
		ID:             u.ID,
		DisplayName:    name,
		ProfilePicture: u.ProfilePicture,
	}
}
