package authz

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/caldera-store/caldera/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Profile{}, &models.Identity{},
		&models.Channel{}, &models.Package{},
		&models.ChannelMember{}, &models.PackageMember{}, &models.PackageVersion{},
		&models.ApiKey{}, &models.ApiKeyRole{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		UserId:   uuid.New().String(),
		Username: username,
		Profile:  models.Profile{Name: username},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedChannel(t *testing.T, db *gorm.DB, name string) models.Channel {
	t.Helper()
	channel := models.Channel{Name: name}
	require.NoError(t, db.Create(&channel).Error)
	return channel
}

func seedPackage(t *testing.T, db *gorm.DB, channel models.Channel, name string) models.Package {
	t.Helper()
	pkg := models.Package{Name: name, ChannelID: channel.ID}
	require.NoError(t, db.Create(&pkg).Error)
	return pkg
}

func addChannelRole(t *testing.T, db *gorm.DB, channel models.Channel, user models.User, role Role) {
	t.Helper()
	require.NoError(t, db.Create(&models.ChannelMember{
		ChannelID: channel.ID, UserID: user.ID, Role: string(role),
	}).Error)
}

func addPackageRole(t *testing.T, db *gorm.DB, pkg models.Package, user models.User, role Role) {
	t.Helper()
	require.NoError(t, db.Create(&models.PackageMember{
		ChannelID: pkg.ChannelID, PackageID: pkg.ID, UserID: user.ID, Role: string(role),
	}).Error)
}

func seedApiKey(t *testing.T, db *gorm.DB, user models.User, roles ...models.ApiKeyRole) models.ApiKey {
	t.Helper()
	key := models.ApiKey{Key: uuid.New().String(), UserID: user.ID, Roles: roles}
	require.NoError(t, db.Create(&key).Error)
	return key
}

func TestAssertUserAnonymous(t *testing.T) {
	db := openTestDB(t)

	_, err := New(db, nil).AssertUser()
	require.True(t, errors.Is(err, ErrNotLoggedIn))
}

func TestAssertUserSession(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice")

	userID, err := New(db, SessionPrincipal{UserID: user.ID}).AssertUser()
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestChannelOwnerUploadsEveryPackage(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "alice")
	channel := seedChannel(t, db, "science")
	seedPackage(t, db, channel, "numerics")
	addChannelRole(t, db, channel, owner, RoleOwner)

	// no package-level membership row exists
	rules := New(db, SessionPrincipal{UserID: owner.ID})
	userID, err := rules.AssertUploadFile("science", "numerics")
	require.NoError(t, err)
	require.Equal(t, owner.ID, userID)
}

func TestChannelMemberCannotUpload(t *testing.T) {
	db := openTestDB(t)
	member := seedUser(t, db, "bob")
	channel := seedChannel(t, db, "science")
	seedPackage(t, db, channel, "numerics")
	addChannelRole(t, db, channel, member, RoleMember)

	_, err := New(db, SessionPrincipal{UserID: member.ID}).AssertUploadFile("science", "numerics")
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestPackageMaintainerUploadsWithoutChannelRole(t *testing.T) {
	db := openTestDB(t)
	maintainer := seedUser(t, db, "carol")
	channel := seedChannel(t, db, "science")
	pkg := seedPackage(t, db, channel, "numerics")
	addPackageRole(t, db, pkg, maintainer, RoleMaintainer)

	_, err := New(db, SessionPrincipal{UserID: maintainer.ID}).AssertUploadFile("science", "numerics")
	require.NoError(t, err)

	// but not for a sibling package
	seedPackage(t, db, channel, "plotting")
	_, err = New(db, SessionPrincipal{UserID: maintainer.ID}).AssertUploadFile("science", "plotting")
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestMaintainerCannotGrantOwner(t *testing.T) {
	db := openTestDB(t)
	maintainer := seedUser(t, db, "carol")
	channel := seedChannel(t, db, "science")
	pkg := seedPackage(t, db, channel, "numerics")
	addChannelRole(t, db, channel, maintainer, RoleMaintainer)

	rules := New(db, SessionPrincipal{UserID: maintainer.ID})

	_, err := rules.AssertAddChannelMember("science", RoleOwner)
	require.True(t, errors.Is(err, ErrForbidden))

	_, err = rules.AssertAddPackageMember("science", pkg.Name, RoleOwner)
	require.True(t, errors.Is(err, ErrForbidden))

	// member and maintainer grants are fine
	_, err = rules.AssertAddChannelMember("science", RoleMember)
	require.NoError(t, err)
	_, err = rules.AssertAddChannelMember("science", RoleMaintainer)
	require.NoError(t, err)
}

func TestOwnerGrantsOwner(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "alice")
	channel := seedChannel(t, db, "science")
	addChannelRole(t, db, channel, owner, RoleOwner)

	_, err := New(db, SessionPrincipal{UserID: owner.ID}).AssertAddChannelMember("science", RoleOwner)
	require.NoError(t, err)
}

func TestGrantInvalidRoleDenied(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "alice")
	channel := seedChannel(t, db, "science")
	addChannelRole(t, db, channel, owner, RoleOwner)

	_, err := New(db, SessionPrincipal{UserID: owner.ID}).AssertAddChannelMember("science", Role("sudo"))
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestAPIKeyCeilingRecheckedAgainstLiveRole(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "alice")
	channel := seedChannel(t, db, "science")
	seedPackage(t, db, channel, "numerics")
	addChannelRole(t, db, channel, owner, RoleOwner)

	key := seedApiKey(t, db, owner,
		models.ApiKeyRole{ChannelName: "science", Role: string(RoleOwner)})

	rules := New(db, APIKeyPrincipal{Key: key})
	_, err := rules.AssertAddChannelMember("science", RoleOwner)
	require.NoError(t, err)

	// demote the owning user; the key's recorded owner tuple is only a
	// ceiling, so the key must drop to member immediately
	require.NoError(t, db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channel.ID, owner.ID).
		Update("role", string(RoleMember)).Error)

	rules = New(db, APIKeyPrincipal{Key: key})
	_, err = rules.AssertAddChannelMember("science", RoleMaintainer)
	require.True(t, errors.Is(err, ErrForbidden))
	_, err = rules.AssertUploadFile("science", "numerics")
	require.True(t, errors.Is(err, ErrForbidden))
	_, err = rules.AssertAddChannelMember("science", RoleMember)
	require.NoError(t, err)
}

func TestAPIKeyTupleNarrowsScope(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "alice")
	channel := seedChannel(t, db, "science")
	seedPackage(t, db, channel, "numerics")
	seedPackage(t, db, channel, "plotting")
	addChannelRole(t, db, channel, owner, RoleOwner)

	key := seedApiKey(t, db, owner,
		models.ApiKeyRole{ChannelName: "science", PackageName: "numerics", Role: string(RoleMaintainer)})

	rules := New(db, APIKeyPrincipal{Key: key})

	_, err := rules.AssertUploadFile("science", "numerics")
	require.NoError(t, err)

	// the tuple does not cover the sibling package even though the
	// owning user is channel owner
	_, err = rules.AssertUploadFile("science", "plotting")
	require.True(t, errors.Is(err, ErrForbidden))

	// nor does it grant anything at channel scope
	_, err = rules.AssertAddChannelMember("science", RoleMember)
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestAPIKeyWithoutTuplesOnlyAuthenticates(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "alice")
	channel := seedChannel(t, db, "science")
	seedPackage(t, db, channel, "numerics")
	addChannelRole(t, db, channel, owner, RoleOwner)

	key := seedApiKey(t, db, owner)

	rules := New(db, APIKeyPrincipal{Key: key})

	userID, err := rules.AssertUser()
	require.NoError(t, err)
	require.Equal(t, owner.ID, userID)

	_, err = rules.AssertUploadFile("science", "numerics")
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestAssertCreateAPIKeyRoles(t *testing.T) {
	db := openTestDB(t)
	maintainer := seedUser(t, db, "carol")
	channel := seedChannel(t, db, "science")
	seedPackage(t, db, channel, "numerics")
	addChannelRole(t, db, channel, maintainer, RoleMaintainer)

	rules := New(db, SessionPrincipal{UserID: maintainer.ID})

	// a key can never be minted with more power than its creator holds
	_, err := rules.AssertCreateAPIKeyRoles([]CPRole{
		{Channel: "science", Role: string(RoleOwner)},
	})
	require.True(t, errors.Is(err, ErrForbidden))

	_, err = rules.AssertCreateAPIKeyRoles([]CPRole{
		{Channel: "science", Role: string(RoleMaintainer)},
		{Channel: "science", Package: "numerics", Role: string(RoleMember)},
	})
	require.NoError(t, err)

	// empty tuple list is allowed
	_, err = rules.AssertCreateAPIKeyRoles(nil)
	require.NoError(t, err)
}
