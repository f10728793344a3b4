package repositories

import (
	"errors"

	"github.com/caldera-store/caldera/pkg/authz"
	"github.com/caldera-store/caldera/pkg/models"
	"gorm.io/gorm"
)

type IPackagesRepository interface {
	Get(channel, name string) (*models.Package, error)
	List(channel string, skip, limit int, q string) ([]models.Package, error)
	Create(channel, name, description string, creatorID uint) (*models.Package, error)
	GetMember(channel, pkg, username string) (*models.PackageMember, error)
	AddMember(channel, pkg, username, role string) (*models.PackageMember, error)
	ListMembers(channel, pkg string) ([]models.PackageMember, error)
	ListVersions(channel, pkg string) ([]models.PackageVersion, error)
	CreateVersion(version *models.PackageVersion) error
}

type PackagesRepository struct {
	db       *gorm.DB
	channels *ChannelsRepository
}

func NewPackagesRepository(db *gorm.DB) *PackagesRepository {
	return &PackagesRepository{db: db, channels: NewChannelsRepository(db)}
}

func (p *PackagesRepository) Get(channel, name string) (*models.Package, error) {
	var pkg models.Package
	err := p.db.
		Joins("JOIN channels ON channels.id = packages.channel_id").
		Where("channels.name = ? AND packages.name = ?", channel, name).
		First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &pkg, nil
}

func (p *PackagesRepository) List(channel string, skip, limit int, q string) ([]models.Package, error) {
	if _, err := p.channels.Get(channel); err != nil {
		return nil, err
	}

	var packages []models.Package
	tx := p.db.
		Joins("JOIN channels ON channels.id = packages.channel_id").
		Where("channels.name = ?", channel).
		Offset(skip).Limit(limit).Order("packages.name")
	if q != "" {
		tx = tx.Where("packages.name LIKE ?", "%"+q+"%")
	}
	if err := tx.Find(&packages).Error; err != nil {
		return nil, err
	}

	return packages, nil
}

// Create inserts the package and its initial owner member in one
// transaction, mirroring ChannelsRepository.Create.
func (p *PackagesRepository) Create(channel, name, description string, creatorID uint) (*models.Package, error) {
	ch, err := p.channels.Get(channel)
	if err != nil {
		return nil, err
	}

	pkg := models.Package{Name: name, ChannelID: ch.ID, Description: description}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Package
		err := tx.Where(&models.Package{Name: name, ChannelID: ch.ID}).First(&existing).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&pkg).Error; err != nil {
			return translateDuplicate(err)
		}

		return tx.Create(&models.PackageMember{
			ChannelID: ch.ID,
			PackageID: pkg.ID,
			UserID:    creatorID,
			Role:      string(authz.RoleOwner),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &pkg, nil
}

func (p *PackagesRepository) GetMember(channel, pkg, username string) (*models.PackageMember, error) {
	var member models.PackageMember
	err := p.db.
		Joins("JOIN packages ON packages.id = package_members.package_id").
		Joins("JOIN channels ON channels.id = packages.channel_id").
		Joins("JOIN users ON users.id = package_members.user_id").
		Where("channels.name = ? AND packages.name = ? AND users.username = ?", channel, pkg, username).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (p *PackagesRepository) AddMember(channel, pkg, username, role string) (*models.PackageMember, error) {
	pk, err := p.Get(channel, pkg)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = p.db.Where(&models.User{Username: username}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	member := models.PackageMember{
		ChannelID: pk.ChannelID,
		PackageID: pk.ID,
		UserID:    user.ID,
		Role:      role,
	}
	if err := p.db.Create(&member).Error; err != nil {
		return nil, translateDuplicate(err)
	}

	return &member, nil
}

func (p *PackagesRepository) ListMembers(channel, pkg string) ([]models.PackageMember, error) {
	if _, err := p.Get(channel, pkg); err != nil {
		return nil, err
	}

	var members []models.PackageMember
	err := p.db.
		Joins("JOIN packages ON packages.id = package_members.package_id").
		Joins("JOIN channels ON channels.id = packages.channel_id").
		Where("channels.name = ? AND packages.name = ?", channel, pkg).
		Preload("User.Profile").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (p *PackagesRepository) ListVersions(channel, pkg string) ([]models.PackageVersion, error) {
	if _, err := p.Get(channel, pkg); err != nil {
		return nil, err
	}

	var versions []models.PackageVersion
	err := p.db.
		Joins("JOIN packages ON packages.id = package_versions.package_id").
		Joins("JOIN channels ON channels.id = packages.channel_id").
		Where("channels.name = ? AND packages.name = ?", channel, pkg).
		Preload("Uploader.Profile").
		Order("package_versions.created_at").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}

	return versions, nil
}

// CreateVersion persists an immutable version row. The composite unique
// index turns a duplicate (package, platform, version, build number,
// build string) into ErrConflict, so of two racing uploads exactly one
// succeeds.
func (p *PackagesRepository) CreateVersion(version *models.PackageVersion) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		// explicit conditions: build number zero and empty build string
		// are legitimate key parts
		var existing models.PackageVersion
		err := tx.Where(
			"package_id = ? AND platform = ? AND version = ? AND build_number = ? AND build_string = ?",
			version.PackageID, version.Platform, version.Version, version.BuildNumber, version.BuildString,
		).First(&existing).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(version).Error; err != nil {
			return translateDuplicate(err)
		}

		return nil
	})
}
