package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMoveTransfer(t *testing.T) {
	src, err := ParseURI("vos:astro/old.fits", "", "")
	require.NoError(t, err)
	dest, err := ParseURI("vos:archive/new.fits", "", "")
	require.NoError(t, err)

	tr := NewMoveTransfer(src, dest)
	require.True(t, tr.IsMove())

	body, err := tr.XML()
	require.NoError(t, err)
	doc := string(body)
	require.Contains(t, doc, `xmlns="http://www.ivoa.net/xml/VOSpace/v2.0"`)
	require.Contains(t, doc, "<target>vos://cadc.nrc.ca!vospace/astro/old.fits</target>")
	require.Contains(t, doc, "<keepBytes>false</keepBytes>")

	parsed, err := ParseTransfer(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, tr.Target, parsed.Target)
	require.Equal(t, tr.Direction, parsed.Direction)
	require.True(t, parsed.IsMove())
}

func TestErrorWrapping(t *testing.T) {
	err := Wrap(ErrNodeNotFound, ErrBadRequest)
	require.ErrorIs(t, err, ErrNodeNotFound)
	require.ErrorIs(t, err, ErrBadRequest)

	err = Wrapf(ErrInvalidURI, "checking %q", "x y z")
	require.ErrorIs(t, err, ErrInvalidURI)
	require.Contains(t, err.Error(), "x y z")

	se := &ServiceError{Sentinel: ErrNotAuthorized, Op: "getNode", Status: 401}
	require.ErrorIs(t, se, ErrNotAuthorized)
	require.Contains(t, se.Error(), "HTTP 401")
}
