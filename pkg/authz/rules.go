package authz

import (
	"errors"

	"github.com/caldera-store/caldera/pkg/models"
	"gorm.io/gorm"
)

var (
	// ErrNotLoggedIn means no principal could be resolved for the request.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrForbidden means the principal resolved but lacks the required role.
	ErrForbidden = errors.New("permission denied")
)

// Principal is the authenticated actor behind a request: either a
// session-bound user or an API key acting for its owning user.
type Principal interface {
	userID() uint
}

type SessionPrincipal struct {
	UserID uint
}

func (p SessionPrincipal) userID() uint { return p.UserID }

type APIKeyPrincipal struct {
	Key models.ApiKey
}

func (p APIKeyPrincipal) userID() uint { return p.Key.UserID }

// CPRole is a requested (channel, package-or-empty, role) scoping tuple
// for a new API key.
type CPRole struct {
	Channel string `json:"channel"`
	Package string `json:"package"`
	Role    string `json:"role"`
}

// Rules answers authorization questions for one request. Membership
// lookups are read-only snapshots at decision time.
type Rules struct {
	db        *gorm.DB
	principal Principal
}

func New(db *gorm.DB, principal Principal) *Rules {
	return &Rules{db: db, principal: principal}
}

// AssertUser returns the acting user's id, or ErrNotLoggedIn for an
// anonymous request.
func (r *Rules) AssertUser() (uint, error) {
	if r.principal == nil {
		return 0, ErrNotLoggedIn
	}
	return r.principal.userID(), nil
}

// AssertAddChannelMember checks that the caller may grant the requested
// role at channel scope. Granting owner requires the caller to be owner;
// a maintainer may grant member or maintainer only.
func (r *Rules) AssertAddChannelMember(channel string, requested Role) (uint, error) {
	userID, err := r.AssertUser()
	if err != nil {
		return 0, err
	}

	eff, err := r.effectiveRole(channel, "")
	if err != nil {
		return 0, err
	}
	if err := checkGrant(eff, requested); err != nil {
		return 0, err
	}

	return userID, nil
}

// AssertAddPackageMember is the package-scope counterpart of
// AssertAddChannelMember, evaluated against the effective role at the
// package (package row or inherited channel row).
func (r *Rules) AssertAddPackageMember(channel, pkg string, requested Role) (uint, error) {
	userID, err := r.AssertUser()
	if err != nil {
		return 0, err
	}

	eff, err := r.effectiveRole(channel, pkg)
	if err != nil {
		return 0, err
	}
	if err := checkGrant(eff, requested); err != nil {
		return 0, err
	}

	return userID, nil
}

// AssertUploadFile requires an effective role of at least maintainer at
// package scope.
func (r *Rules) AssertUploadFile(channel, pkg string) (uint, error) {
	userID, err := r.AssertUser()
	if err != nil {
		return 0, err
	}

	eff, err := r.effectiveRole(channel, pkg)
	if err != nil {
		return 0, err
	}
	if eff.Rank() < RoleMaintainer.Rank() {
		return 0, ErrForbidden
	}

	return userID, nil
}

// AssertCreateAPIKeyRoles checks every requested scoping tuple against
// the caller's current effective role at that scope: a key can never be
// minted with more power than its creator holds right now. An empty
// tuple list is permitted and yields a key good for AssertUser only.
func (r *Rules) AssertCreateAPIKeyRoles(requested []CPRole) (uint, error) {
	userID, err := r.AssertUser()
	if err != nil {
		return 0, err
	}

	for _, cpr := range requested {
		role := Role(cpr.Role)
		if !role.Valid() {
			return 0, ErrForbidden
		}
		eff, err := r.effectiveRole(cpr.Channel, cpr.Package)
		if err != nil {
			return 0, err
		}
		if eff.Rank() < role.Rank() {
			return 0, ErrForbidden
		}
	}

	return userID, nil
}

func checkGrant(effective, requested Role) error {
	if !requested.Valid() {
		return ErrForbidden
	}
	if effective.Rank() < requested.Rank() {
		return ErrForbidden
	}
	if requested == RoleOwner && effective != RoleOwner {
		return ErrForbidden
	}
	return nil
}

// effectiveRole resolves the principal's role at the given scope. An
// empty pkg means channel scope. For API-key principals the key's
// tuples cap what the owning user's live role can contribute.
func (r *Rules) effectiveRole(channel, pkg string) (Role, error) {
	if r.principal == nil {
		return RoleNone, ErrNotLoggedIn
	}

	live, err := r.userEffectiveRole(r.principal.userID(), channel, pkg)
	if err != nil {
		return RoleNone, err
	}

	key, isKey := r.principal.(APIKeyPrincipal)
	if !isKey {
		return live, nil
	}

	ceiling := keyCeiling(key.Key, channel, pkg)
	return Min(ceiling, live), nil
}

func (r *Rules) userEffectiveRole(userID uint, channel, pkg string) (Role, error) {
	channelRole, err := r.channelRole(userID, channel)
	if err != nil {
		return RoleNone, err
	}

	packageRole := RoleNone
	if pkg != "" {
		packageRole, err = r.packageRole(userID, channel, pkg)
		if err != nil {
			return RoleNone, err
		}
	}

	return Effective(packageRole, channelRole), nil
}

func (r *Rules) channelRole(userID uint, channel string) (Role, error) {
	var member models.ChannelMember
	err := r.db.
		Joins("JOIN channels ON channels.id = channel_members.channel_id").
		Where("channels.name = ? AND channel_members.user_id = ?", channel, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, err
	}

	return Role(member.Role), nil
}

func (r *Rules) packageRole(userID uint, channel, pkg string) (Role, error) {
	var member models.PackageMember
	err := r.db.
		Joins("JOIN packages ON packages.id = package_members.package_id").
		Joins("JOIN channels ON channels.id = packages.channel_id").
		Where("channels.name = ? AND packages.name = ? AND package_members.user_id = ?", channel, pkg, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, err
	}

	return Role(member.Role), nil
}

// keyCeiling is the strongest role the key's recorded tuples claim at
// the scope. A tuple with an empty package name covers every package in
// its channel.
func keyCeiling(key models.ApiKey, channel, pkg string) Role {
	ceiling := RoleNone
	for _, tuple := range key.Roles {
		if tuple.ChannelName != channel {
			continue
		}
		if tuple.PackageName != "" && tuple.PackageName != pkg {
			continue
		}
		ceiling = Max(ceiling, Role(tuple.Role))
	}

	return ceiling
}
