package repositories

import (
	"errors"

	"github.com/caldera-store/caldera/pkg/authz"
	"github.com/caldera-store/caldera/pkg/models"
	"gorm.io/gorm"
)

type IChannelsRepository interface {
	Get(name string) (*models.Channel, error)
	List(skip, limit int, q string) ([]models.Channel, error)
	Create(name, description string, private bool, creatorID uint) (*models.Channel, error)
	GetMember(channel, username string) (*models.ChannelMember, error)
	AddMember(channel, username, role string) (*models.ChannelMember, error)
	ListMembers(channel string) ([]models.ChannelMember, error)
}

type ChannelsRepository struct {
	db *gorm.DB
}

func NewChannelsRepository(db *gorm.DB) *ChannelsRepository {
	return &ChannelsRepository{db: db}
}

func (c *ChannelsRepository) Get(name string) (*models.Channel, error) {
	var channel models.Channel
	err := c.db.Where(&models.Channel{Name: name}).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &channel, nil
}

func (c *ChannelsRepository) List(skip, limit int, q string) ([]models.Channel, error) {
	var channels []models.Channel
	tx := c.db.Offset(skip).Limit(limit).Order("name")
	if q != "" {
		tx = tx.Where("name LIKE ?", "%"+q+"%")
	}
	if err := tx.Find(&channels).Error; err != nil {
		return nil, err
	}

	return channels, nil
}

// Create inserts the channel and its initial owner member in one
// transaction. The check-then-insert runs inside the transaction and the
// unique index backs it up, so two racing creates yield exactly one
// success and one ErrConflict.
func (c *ChannelsRepository) Create(name, description string, private bool, creatorID uint) (*models.Channel, error) {
	channel := models.Channel{Name: name, Description: description, Private: private}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Channel
		err := tx.Where(&models.Channel{Name: name}).First(&existing).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&channel).Error; err != nil {
			return translateDuplicate(err)
		}

		return tx.Create(&models.ChannelMember{
			ChannelID: channel.ID,
			UserID:    creatorID,
			Role:      string(authz.RoleOwner),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &channel, nil
}

func (c *ChannelsRepository) GetMember(channel, username string) (*models.ChannelMember, error) {
	var member models.ChannelMember
	err := c.db.
		Joins("JOIN channels ON channels.id = channel_members.channel_id").
		Joins("JOIN users ON users.id = channel_members.user_id").
		Where("channels.name = ? AND users.username = ?", channel, username).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (c *ChannelsRepository) AddMember(channel, username, role string) (*models.ChannelMember, error) {
	ch, err := c.Get(channel)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = c.db.Where(&models.User{Username: username}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	member := models.ChannelMember{ChannelID: ch.ID, UserID: user.ID, Role: role}
	if err := c.db.Create(&member).Error; err != nil {
		return nil, translateDuplicate(err)
	}

	return &member, nil
}

func (c *ChannelsRepository) ListMembers(channel string) ([]models.ChannelMember, error) {
	if _, err := c.Get(channel); err != nil {
		return nil, err
	}

	var members []models.ChannelMember
	err := c.db.
		Joins("JOIN channels ON channels.id = channel_members.channel_id").
		Where("channels.name = ?", channel).
		Preload("User.Profile").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return members, nil
}

func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
