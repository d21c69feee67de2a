package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleTransitions(t *testing.T) {
	cases := []struct {
		name string
		from Role
		to   Role
		ok   bool
	}{
		{"join assigns normal", RoleNone, RoleNormal, true},
		{"leave clears normal", RoleNormal, RoleNone, true},
		{"leave clears admin", RoleAdmin, RoleNone, true},
		{"owner leaves", RoleOwner, RoleNone, true},
		{"promote", RoleNormal, RoleAdmin, true},
		{"demote", RoleAdmin, RoleNormal, true},
		{"ownership grant to normal", RoleNormal, RoleOwner, true},
		{"ownership grant to admin", RoleAdmin, RoleOwner, true},
		{"previous owner drops to normal", RoleOwner, RoleNormal, true},
		{"no self transition", RoleAdmin, RoleAdmin, false},
		{"none cannot become admin directly", RoleNone, RoleAdmin, false},
		{"none cannot become owner directly", RoleNone, RoleOwner, false},
		{"owner cannot become admin", RoleOwner, RoleAdmin, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to))
		})
	}
}

func TestRoleCanModerate(t *testing.T) {
	assert.False(t, RoleNone.CanModerate())
	assert.False(t, RoleNormal.CanModerate())
	assert.True(t, RoleAdmin.CanModerate())
	assert.True(t, RoleOwner.CanModerate())
}

func TestParseRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleNone, RoleNormal, RoleAdmin, RoleOwner} {
		assert.Equal(t, r, ParseRole(r.String()))
	}
	assert.Equal(t, RoleNone, ParseRole("garbage"))
}
