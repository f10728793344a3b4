package repositories

import (
	"errors"

	"github.com/caldera-store/caldera/pkg/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IUsersRepository interface {
	GetByUsername(username string) (*models.User, error)
	GetByUserId(userId string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	GetProfile(userID uint) (*models.Profile, error)
	List(skip, limit int, q string) ([]models.User, error)
	GetOrCreateFromLogin(provider, externalId, username, name, avatarURL string) (*models.User, error)
}

type UsersRepository struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func (u *UsersRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := u.db.Preload("Profile").Where(&models.User{Username: username}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (u *UsersRepository) GetByUserId(userId string) (*models.User, error) {
	var user models.User
	err := u.db.Preload("Profile").Where(&models.User{UserId: userId}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (u *UsersRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := u.db.Preload("Profile").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (u *UsersRepository) GetProfile(userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := u.db.Where(&models.Profile{UserID: userID}).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (u *UsersRepository) List(skip, limit int, q string) ([]models.User, error) {
	var users []models.User
	tx := u.db.Preload("Profile").Offset(skip).Limit(limit).Order("username")
	if q != "" {
		tx = tx.Where("username LIKE ?", "%"+q+"%")
	}
	if err := tx.Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// GetOrCreateFromLogin resolves the user linked to an external identity,
// creating user, profile and identity rows on first login.
func (u *UsersRepository) GetOrCreateFromLogin(provider, externalId, username, name, avatarURL string) (*models.User, error) {
	var user models.User

	err := u.db.Transaction(func(tx *gorm.DB) error {
		var identity models.Identity
		err := tx.Where(&models.Identity{Provider: provider, ExternalId: externalId}).First(&identity).Error
		if err == nil {
			return tx.Preload("Profile").First(&user, identity.UserID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = models.User{
			UserId:   uuid.New().String(),
			Username: username,
			Profile:  models.Profile{Name: name, AvatarURL: avatarURL},
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		return tx.Create(&models.Identity{
			Provider:   provider,
			ExternalId: externalId,
			UserID:     user.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
