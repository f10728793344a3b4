package models

import "gorm.io/gorm"

// ApiKey is a principal in its own right. The secret is stored as
// presented and looked up by exact match.
type ApiKey struct {
	gorm.Model
	Key         string `gorm:"unique"`
	Description string
	UserID      uint
	User        User
	Roles       []ApiKeyRole
}

// ApiKeyRole is a (channel, package-or-empty, role) scoping tuple. An
// empty PackageName scopes the tuple to the whole channel. Tuples are a
// ceiling fixed at creation time; the authorization engine re-checks the
// owning user's live role on every decision.
type ApiKeyRole struct {
	gorm.Model
	ApiKeyID    uint
	ChannelName string
	PackageName string
	Role        string
}
