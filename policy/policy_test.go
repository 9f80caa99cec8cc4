package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_ReadAlwaysPermitted(t *testing.T) {
	anon := Identity{}
	alice := Identity{UserID: 1, Username: "alice"}

	assert.True(t, Allow(anon, OpRead, 0))
	assert.True(t, Allow(anon, OpRead, 42))
	assert.True(t, Allow(alice, OpRead, 42))
}

func TestAllow_CreateRequiresAuthentication(t *testing.T) {
	anon := Identity{}
	alice := Identity{UserID: 1, Username: "alice"}

	assert.False(t, Allow(anon, OpCreate, 0))
	assert.True(t, Allow(alice, OpCreate, 0))
}

func TestAllow_ModifyIsAuthorOnly(t *testing.T) {
	anon := Identity{}
	alice := Identity{UserID: 1, Username: "alice"}
	bob := Identity{UserID: 2, Username: "bob"}

	assert.True(t, Allow(alice, OpModify, alice.UserID))
	assert.False(t, Allow(bob, OpModify, alice.UserID))
	assert.False(t, Allow(anon, OpModify, alice.UserID))
}

func TestIdentity_Anonymous(t *testing.T) {
	assert.True(t, Identity{}.Anonymous())
	assert.False(t, Identity{UserID: 7, Username: "carol"}.Anonymous())
}
