package ltiaas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	cases := []struct {
		base, want string
	}{
		{"https://ltiaas.example", "https://ltiaas.example/api/idtoken"},
		{"https://ltiaas.example/", "https://ltiaas.example/api/idtoken"},
		{"https://ltiaas.example/tenant", "https://ltiaas.example/tenant/api/idtoken"},
		{"https://ltiaas.example/tenant/", "https://ltiaas.example/tenant/api/idtoken"},
		{"https://u:p@ltiaas.example:8443/t?x=1", "https://u:p@ltiaas.example:8443/t/api/idtoken?x=1"},
	}
	for _, tc := range cases {
		got, err := JoinPath(tc.base, "/api/idtoken")
		require.NoError(t, err, tc.base)
		assert.Equal(t, tc.want, got, tc.base)
	}
}

func TestJoinPathRejectsBadBase(t *testing.T) {
	_, err := JoinPath("", "/api")
	assert.True(t, errors.Is(err, ErrNotConfigured))
	_, err = JoinPath("ltiaas.example", "/api")
	assert.Error(t, err)
}

func TestLaunchURL(t *testing.T) {
	got, err := LaunchURL("https://ltiaas.example", 12)
	require.NoError(t, err)
	assert.Equal(t, "https://ltiaas.example/lti/launch?id=12", got)

	got, err = LaunchURL("https://ltiaas.example/t/?tenant=a&id=old", 7)
	require.NoError(t, err)
	assert.Equal(t, "https://ltiaas.example/t/lti/launch?id=7&tenant=a", got)
}
