package models

import "gorm.io/gorm"

type Channel struct {
	gorm.Model
	Name        string `gorm:"unique" json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	Packages    []Package
	Members     []ChannelMember
}

type Package struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex:idx_channel_package" json:"name"`
	ChannelID   uint   `gorm:"uniqueIndex:idx_channel_package"`
	Channel     Channel
	Description string `json:"description"`
	Members     []PackageMember
	Versions    []PackageVersion
}

type ChannelMember struct {
	gorm.Model
	ChannelID uint `gorm:"uniqueIndex:idx_channel_member"`
	Channel   Channel
	UserID    uint `gorm:"uniqueIndex:idx_channel_member"`
	User      User
	Role      string
}

type PackageMember struct {
	gorm.Model
	ChannelID uint
	Channel   Channel
	PackageID uint `gorm:"uniqueIndex:idx_package_member"`
	Package   Package
	UserID    uint `gorm:"uniqueIndex:idx_package_member"`
	User      User
	Role      string
}

// PackageVersion is immutable once created. The unique index over the
// version key makes concurrent duplicate uploads fail at the database.
type PackageVersion struct {
	gorm.Model
	PackageID   uint   `gorm:"uniqueIndex:idx_version_key"`
	Package     Package
	Platform    string `gorm:"uniqueIndex:idx_version_key"`
	Version     string `gorm:"uniqueIndex:idx_version_key"`
	BuildNumber int    `gorm:"uniqueIndex:idx_version_key"`
	BuildString string `gorm:"uniqueIndex:idx_version_key"`
	Filename    string
	// Info holds the archive's embedded index.json document verbatim
	Info       string
	UploaderID uint
	Uploader   User
}
