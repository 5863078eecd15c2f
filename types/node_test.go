package types

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const containerDoc = `<?xml version="1.0" encoding="UTF-8"?>
<vos:node xmlns:vos="http://www.ivoa.net/xml/VOSpace/v2.0"
          xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
          xsi:type="vos:ContainerNode" busy="false"
          uri="vos://cadc.nrc.ca!vospace/astro">
  <vos:properties>
    <vos:property uri="ivo://ivoa.net/vospace/core#date" readOnly="true">2023-03-01T12:30:45.000</vos:property>
    <vos:property uri="ivo://ivoa.net/vospace/core#creator" readOnly="true">CN=Jane Scientist,OU=hia.nrc.ca,O=Grid,C=CA</vos:property>
    <vos:property uri="ivo://ivoa.net/vospace/core#groupread" readOnly="false">ivo://cadc.nrc.ca/gms#stars</vos:property>
    <vos:property uri="ivo://ivoa.net/vospace/core#groupwrite" readOnly="false">NONE</vos:property>
    <vos:property uri="ivo://ivoa.net/vospace/core#ispublic" readOnly="false">true</vos:property>
    <vos:property uri="ivo://cadc.nrc.ca/vospace/core#islocked" readOnly="false">false</vos:property>
  </vos:properties>
  <vos:nodes>
    <vos:node xsi:type="vos:DataNode" busy="false" uri="vos://cadc.nrc.ca!vospace/astro/field1.fits">
      <vos:properties>
        <vos:property uri="ivo://ivoa.net/vospace/core#length" readOnly="true">165888</vos:property>
        <vos:property uri="ivo://ivoa.net/vospace/core#MD5" readOnly="true">9a0364b9e99bb480dd25e1f0284c8555</vos:property>
      </vos:properties>
    </vos:node>
    <vos:node xsi:type="vos:ContainerNode" busy="false" uri="vos://cadc.nrc.ca!vospace/astro/deep"/>
  </vos:nodes>
</vos:node>`

func TestParseNode(t *testing.T) {
	n, err := ParseNode(strings.NewReader(containerDoc))
	require.NoError(t, err)

	require.Equal(t, ContainerNodeType, n.Type)
	require.True(t, n.IsDir())
	require.False(t, n.IsBusy())
	require.Equal(t, "astro", n.Name())
	require.True(t, n.IsPublic())
	require.False(t, n.IsLocked())
	require.Equal(t, "ivo://cadc.nrc.ca/gms#stars", n.Prop("groupread"))
	require.Equal(t, "jane_scientist", n.Creator())

	require.Len(t, n.Nodes, 2)
	require.Equal(t, "field1.fits", n.Nodes[0].Name())
	require.Equal(t, int64(165888), n.Nodes[0].Size())
	require.True(t, n.Nodes[1].IsDir())
}

func TestNodeXML(t *testing.T) {
	uri, err := ParseURI("vos:astro/new.fits", "", "")
	require.NoError(t, err)

	n := NewNode(uri, DataNodeType, map[string]string{"description": "stacked image"})
	body, err := n.XML()
	require.NoError(t, err)

	doc := string(body)
	require.Contains(t, doc, `xmlns="http://www.ivoa.net/xml/VOSpace/v2.0"`)
	require.Contains(t, doc, `xsi:type="vos:DataNode"`)
	require.Contains(t, doc, `uri="vos://cadc.nrc.ca!vospace/astro/new.fits"`)
	require.Contains(t, doc, `ivo://ivoa.net/vospace/core#description`)
	// content type guessed from the extension
	require.Contains(t, doc, "application/fits")

	parsed, err := ParseNode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, DataNodeType, parsed.Type)
	require.Equal(t, "stacked image", parsed.Prop("description"))
}

func TestNodeProps(t *testing.T) {
	uri, err := ParseURI("vos:astro/n", "", "")
	require.NoError(t, err)
	n := NewNode(uri, ContainerNodeType, nil)

	require.True(t, n.SetProp("quality", "raw"))
	require.False(t, n.SetProp("quality", "raw"))
	require.True(t, n.SetProp("quality", "calibrated"))
	require.Equal(t, "calibrated", n.Prop("quality"))

	require.Equal(t, map[string]string{"quality": "calibrated"}, n.ExtProps())

	require.True(t, n.DelProp("quality"))
	require.False(t, n.DelProp("quality"))
	require.False(t, n.HasProp("quality"))
	require.Empty(t, n.Prop("quality"))

	// deletion keeps the element, flagged nil, for the service to act on
	body, err := n.XML()
	require.NoError(t, err)
	require.Contains(t, string(body), `xsi:nil="true"`)

	parsed, err := ParseNode(strings.NewReader(string(body)))
	require.NoError(t, err)
	require.False(t, parsed.HasProp("quality"))
}

func TestNodeMode(t *testing.T) {
	n, err := ParseNode(strings.NewReader(containerDoc))
	require.NoError(t, err)

	// public container with a read group
	require.Equal(t, "drw-r--r--", n.Info().Permissions)
	mode := n.Mode()
	require.True(t, mode.IsDir())
	require.Equal(t, "drwxr-xr-x", mode.String())

	// drop everything but the owner
	require.True(t, n.Chmod(0700))
	require.Equal(t, "false", n.Prop("ispublic"))
	require.False(t, groupSet(n.Prop("groupread")))

	// group read restored keeps the recorded group
	n.SetProp("groupread", "ivo://cadc.nrc.ca/gms#stars")
	require.True(t, n.Chmod(0704))
	require.Equal(t, "true", n.Prop("ispublic"))
	require.Equal(t, "ivo://cadc.nrc.ca/gms#stars", n.Prop("groupread"))
}

func TestNodeInfo(t *testing.T) {
	n, err := ParseNode(strings.NewReader(containerDoc))
	require.NoError(t, err)

	infos := n.InfoList()
	require.Len(t, infos, 2)
	require.Equal(t, "field1.fits", infos[0].Name)
	require.Equal(t, int64(165888), infos[0].Size)
	require.True(t, infos[1].IsDir)

	info := n.Info()
	require.Equal(t, "jane_scientist", info.Creator)
	require.Equal(t, "ivo://cadc.nrc.ca/gms#stars", info.ReadGroup)
	require.Equal(t, "NONE", info.WriteGroup)
	require.Equal(t, time.Date(2023, 3, 1, 12, 30, 45, 0, time.UTC), info.Date)
}

func TestNodeDate(t *testing.T) {
	ts, err := ParseNodeDate("2023-03-01T12:30:45.125")
	require.NoError(t, err)
	require.Equal(t, 125000000, ts.Nanosecond())

	ts, err = ParseNodeDate("2023-03-01T12:30:45")
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 3, 1, 12, 30, 45, 0, time.UTC), ts)

	_, err = ParseNodeDate("")
	require.Error(t, err)

	require.Equal(t, "2023-03-01T12:30:45.000",
		FormatNodeDate(time.Date(2023, 3, 1, 12, 30, 45, 0, time.UTC)))
}
