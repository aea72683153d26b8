package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewUser_Validates_Identity(t *testing.T) {
	req := require.New(t)

	u, err := NewUser(" u-1 ", " Amy ")
	req.NoError(err)
	req.Equal(UserID("u-1"), u.ID)
	req.Equal("Amy", u.Username)

	_, err = NewUser("", "Amy")
	req.ErrorIs(err, ErrUserIDEmpty)
	_, err = NewUser("u-1", "  ")
	req.ErrorIs(err, ErrUsernameEmpty)
	_, err = NewUser(strings.Repeat("x", MaxUserIDLen+1), "Amy")
	req.ErrorIs(err, ErrUserIDTooLong)
	_, err = NewUser("u-1", strings.Repeat("x", MaxUsernameLen+1))
	req.ErrorIs(err, ErrUsernameTooLong)
	req.ErrorIs(err, ErrMalformed)
}

func Test_ParseRole_Defaults_To_Listener(t *testing.T) {
	req := require.New(t)

	r, err := ParseRole("")
	req.NoError(err)
	req.Equal(RoleListener, r)

	r, err = ParseRole("speaker")
	req.NoError(err)
	req.Equal(RoleSpeaker, r)

	_, err = ParseRole("host")
	req.ErrorIs(err, ErrInvalidRole)
}
