package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleRankOrdering(t *testing.T) {
	assert.Less(t, RoleNone.Rank(), RoleMember.Rank())
	assert.Less(t, RoleMember.Rank(), RoleMaintainer.Rank())
	assert.Less(t, RoleMaintainer.Rank(), RoleOwner.Rank())
}

func TestRoleRankUnknown(t *testing.T) {
	assert.Equal(t, 0, Role("admin").Rank())
	assert.Equal(t, 0, RoleNone.Rank())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleMember.Valid())
	assert.True(t, RoleMaintainer.Valid())
	assert.True(t, RoleOwner.Valid())
	assert.False(t, RoleNone.Valid())
	assert.False(t, Role("admin").Valid())
}

func TestMaxMin(t *testing.T) {
	assert.Equal(t, RoleOwner, Max(RoleMember, RoleOwner))
	assert.Equal(t, RoleOwner, Max(RoleOwner, RoleMember))
	assert.Equal(t, RoleMember, Min(RoleMember, RoleOwner))
	assert.Equal(t, RoleNone, Min(RoleOwner, RoleNone))
}

func TestEffective(t *testing.T) {
	// channel role carries into every package of the channel
	assert.Equal(t, RoleOwner, Effective(RoleNone, RoleOwner))
	// package role can exceed the channel role
	assert.Equal(t, RoleOwner, Effective(RoleOwner, RoleMember))
	assert.Equal(t, RoleNone, Effective(RoleNone, RoleNone))
	assert.Equal(t, RoleMaintainer, Effective(RoleMaintainer, RoleMember))
}
