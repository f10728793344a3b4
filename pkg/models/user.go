package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	// UserId is the stable public identifier, a UUID string
	UserId     string `gorm:"unique"`
	Username   string `gorm:"unique"`
	Profile    Profile
	Identities []Identity
}

type Profile struct {
	gorm.Model
	Name      string
	AvatarURL string
	UserID    uint
}

// Identity links a user to an external login provider account.
type Identity struct {
	gorm.Model
	Provider   string `gorm:"uniqueIndex:idx_provider_identity"`
	ExternalId string `gorm:"uniqueIndex:idx_provider_identity"`
	UserID     uint
	User       User
}
