package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	u, err := ParseURI("vos://cadc.nrc.ca!vospace/astro/data.fits", "", "")
	require.NoError(t, err)
	require.Equal(t, "cadc.nrc.ca!vospace", u.Authority)
	require.Equal(t, "astro/data.fits", u.Path)
	require.Equal(t, "data.fits", u.Name())
	require.Equal(t, "vos://cadc.nrc.ca!vospace/astro/data.fits", u.String())

	// tilde form of the authority survives as written
	u, err = ParseURI("vos://cadc.nrc.ca~vospace/astro", "", "")
	require.NoError(t, err)
	require.Equal(t, "cadc.nrc.ca~vospace", u.Authority)

	// missing authority falls back to the default
	u, err = ParseURI("vos:astro/data.fits", "", "")
	require.NoError(t, err)
	require.Equal(t, DefaultAuthority, u.Authority)
	require.Equal(t, "astro/data.fits", u.Path)

	u, err = ParseURI("vos:astro/data.fits", "", "other.org!vospace")
	require.NoError(t, err)
	require.Equal(t, "other.org!vospace", u.Authority)

	// relative names resolve against the root
	u, err = ParseURI("astro/data.fits", "vos:", "")
	require.NoError(t, err)
	require.Equal(t, "vos://cadc.nrc.ca!vospace/astro/data.fits", u.String())

	u, err = ParseURI("data.fits", "vos:home/jkavelaars/", "")
	require.NoError(t, err)
	require.Equal(t, "home/jkavelaars/data.fits", u.Path)

	// paths are normalized
	u, err = ParseURI("vos://cadc.nrc.ca!vospace//astro/./x/../data.fits", "", "")
	require.NoError(t, err)
	require.Equal(t, "astro/data.fits", u.Path)

	_, err = ParseURI("ivo://cadc.nrc.ca!vospace/astro", "", "")
	require.ErrorIs(t, err, ErrInvalidURI)

	_, err = ParseURI("vos:astro/bad[name]", "", "")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestNodeURIHelpers(t *testing.T) {
	u, err := ParseURI("vos:astro/deep/field.fits", "", "")
	require.NoError(t, err)

	require.Equal(t, "astro/deep", u.Dir().Path)
	require.Equal(t, "astro", u.Dir().Dir().Path)
	require.True(t, u.Dir().Dir().Dir().IsRoot())
	require.Equal(t, "vos://cadc.nrc.ca!vospace", u.Dir().Dir().Dir().String())

	child := u.Dir().Join("other.fits")
	require.Equal(t, "astro/deep/other.fits", child.Path)

	require.True(t, IsVOSURI("vos:anything"))
	require.False(t, IsVOSURI("/local/path"))
}
