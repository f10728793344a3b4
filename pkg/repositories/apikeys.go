package repositories

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/caldera-store/caldera/pkg/authz"
	"github.com/caldera-store/caldera/pkg/models"
	"gorm.io/gorm"
)

type IApiKeysRepository interface {
	GetByKey(key string) (*models.ApiKey, error)
	ListForUser(userID uint) ([]models.ApiKey, error)
	Create(userID uint, description string, roles []authz.CPRole) (*models.ApiKey, error)
}

type ApiKeysRepository struct {
	db *gorm.DB
}

func NewApiKeysRepository(db *gorm.DB) *ApiKeysRepository {
	return &ApiKeysRepository{db: db}
}

// GetByKey looks up a presented secret by exact match.
func (a *ApiKeysRepository) GetByKey(key string) (*models.ApiKey, error) {
	var apiKey models.ApiKey
	err := a.db.Preload("Roles").Preload("User.Profile").
		Where(&models.ApiKey{Key: key}).First(&apiKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &apiKey, nil
}

func (a *ApiKeysRepository) ListForUser(userID uint) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := a.db.Preload("Roles").
		Where(&models.ApiKey{UserID: userID}).
		Order("created_at").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Create mints a key with a fresh random secret and the requested
// scoping tuples. The caller is responsible for having authorized the
// tuples first.
func (a *ApiKeysRepository) Create(userID uint, description string, roles []authz.CPRole) (*models.ApiKey, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	apiKey := models.ApiKey{
		Key:         base64.RawURLEncoding.EncodeToString(secret),
		Description: description,
		UserID:      userID,
	}
	for _, cpr := range roles {
		apiKey.Roles = append(apiKey.Roles, models.ApiKeyRole{
			ChannelName: cpr.Channel,
			PackageName: cpr.Package,
			Role:        cpr.Role,
		})
	}

	if err := a.db.Create(&apiKey).Error; err != nil {
		return nil, translateDuplicate(err)
	}

	return &apiKey, nil
}
