package types

import (
	"encoding/xml"
	"io"
	"mime"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// IVOAURL is the base URI for the standard node properties.
	IVOAURL = "ivo://ivoa.net/vospace/core"
	// CADCURL is the base URI for the CADC extension properties.
	CADCURL = "ivo://cadc.nrc.ca/vospace/core"

	VOSNS = "http://www.ivoa.net/xml/VOSpace/v2.0"
	XSINS = "http://www.w3.org/2001/XMLSchema-instance"
)

// Node types.
const (
	DataNodeType      = "vos:DataNode"
	ContainerNodeType = "vos:ContainerNode"
	LinkNodeType      = "vos:LinkNode"
)

// ReservedProps are the standard properties. They are managed through the
// node operations and are not valid targets for extended property setting.
var ReservedProps = []string{
	"description", "type", "encoding", "MD5", "length", "creator", "date",
	"groupread", "groupwrite", "ispublic", "islocked",
}

// cadcProps are the extension properties that live under CADCURL rather
// than IVOAURL.
var cadcProps = map[string]bool{
	"islocked": true,
	"quota":    true,
}

func IsReservedProp(name string) bool {
	for _, p := range ReservedProps {
		if p == name {
			return true
		}
	}
	return false
}

// PropURI returns the full property URI for a short property name.
func PropURI(name string) string {
	if cadcProps[name] {
		return CADCURL + "#" + name
	}
	return IVOAURL + "#" + name
}

// PropName returns the short name of a property URI, the part after '#'.
func PropName(uri string) string {
	if i := strings.LastIndex(uri, "#"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// Property is a single node property element.
type Property struct {
	XMLName  xml.Name `xml:"property"`
	URI      string   `xml:"uri,attr"`
	ReadOnly string   `xml:"readOnly,attr,omitempty"`
	Nil      string   `xml:"xsi:nil,attr,omitempty"`
	Value    string   `xml:",chardata"`
}

// UnmarshalXML reads a property element by hand. The xsi:nil attribute is
// matched by local name so the marker survives a round trip regardless of
// the prefix the writer chose.
func (p *Property) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "uri":
			p.URI = a.Value
		case "readOnly":
			p.ReadOnly = a.Value
		case "nil":
			p.Nil = a.Value
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			p.Value += string(t)
		case xml.EndElement:
			return nil
		}
	}
}

// View is an element of the accepts or provides list.
type View struct {
	URI string `xml:"uri,attr"`
}

// Node is a single entry in the space, either a data node, a container or
// a link. The same document shape is used for requests and responses, so
// the namespace attributes are carried as plain fields and normalized in
// XML before marshalling.
type Node struct {
	XMLName  xml.Name `xml:"node"`
	Xmlns    string   `xml:"xmlns,attr,omitempty"`
	XmlnsVOS string   `xml:"xmlns:vos,attr,omitempty"`
	XmlnsXSI string   `xml:"xmlns:xsi,attr,omitempty"`
	Type     string   `xml:"xsi:type,attr"`
	URI      string   `xml:"uri,attr"`
	Busy     string   `xml:"busy,attr,omitempty"`

	Properties []Property `xml:"properties>property"`
	Accepts    []View     `xml:"accepts>view"`
	Provides   []View     `xml:"provides>view"`
	Target     string     `xml:"target,omitempty"`
	Nodes      []Node     `xml:"nodes>node"`
}

// node avoids recursion in UnmarshalXML.
type node Node

// UnmarshalXML decodes a node element. The xsi:type attribute is matched
// by local name, as writers are free to pick any prefix for the schema
// instance namespace.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw node
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	*n = Node(raw)
	for _, a := range start.Attr {
		if a.Name.Local == "type" {
			n.Type = a.Value
		}
	}
	return nil
}

// NewNode builds the document for a new node of the given type. The
// content type property is guessed from the node name when the caller
// does not provide one.
func NewNode(uri NodeURI, nodeType string, props map[string]string) *Node {
	n := &Node{
		Type: nodeType,
		URI:  uri.String(),
		Busy: "false",
	}
	if _, ok := props["type"]; !ok && nodeType == DataNodeType {
		if mt := MimeType(uri.Name()); mt != "" {
			n.setProp("type", mt)
		}
	}
	for name, value := range props {
		n.setProp(name, value)
	}
	n.Accepts = []View{{URI: IVOAURL + "#defaultview"}}
	n.Provides = []View{
		{URI: IVOAURL + "#defaultview"},
		{URI: CADCURL + "#rssview"},
	}
	if nodeType == DataNodeType {
		n.Provides = append(n.Provides, View{URI: CADCURL + "#dataview"})
	}
	return n
}

// archiveMimeTypes covers the astronomy formats the host mime database
// does not know about.
var archiveMimeTypes = map[string]string{
	".fits": "application/fits",
	".fit":  "application/fits",
	".fz":   "application/fits",
}

// MimeType guesses the content type from the extension of name.
func MimeType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := archiveMimeTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// ParseNode reads a node document.
func ParseNode(r io.Reader) (*Node, error) {
	n := &Node{}
	if err := xml.NewDecoder(r).Decode(n); err != nil {
		return nil, Wrap(ErrBadRequest, err)
	}
	return n, nil
}

// XML renders the node document, normalizing the namespace declarations
// on the root element.
func (n *Node) XML() ([]byte, error) {
	n.Xmlns = VOSNS
	n.XmlnsVOS = VOSNS
	n.XmlnsXSI = XSINS
	body, err := xml.Marshal(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Clone returns a deep copy of the node document.
func (n *Node) Clone() *Node {
	c := *n
	c.Properties = append([]Property(nil), n.Properties...)
	c.Accepts = append([]View(nil), n.Accepts...)
	c.Provides = append([]View(nil), n.Provides...)
	if n.Nodes != nil {
		c.Nodes = make([]Node, len(n.Nodes))
		for i := range n.Nodes {
			c.Nodes[i] = *n.Nodes[i].Clone()
		}
	}
	return &c
}

// Name returns the last element of the node URI.
func (n *Node) Name() string {
	if n.URI == "" {
		return ""
	}
	parts := strings.Split(strings.TrimRight(n.URI, "/"), "/")
	return parts[len(parts)-1]
}

func (n *Node) IsDir() bool {
	return n.Type == ContainerNodeType
}

func (n *Node) IsLink() bool {
	return n.Type == LinkNodeType
}

func (n *Node) IsBusy() bool {
	return n.Busy == "true"
}

func (n *Node) IsPublic() bool {
	return n.Prop("ispublic") == "true"
}

func (n *Node) IsLocked() bool {
	return n.Prop("islocked") == "true"
}

// Prop returns the value of the named property, or "" when unset.
func (n *Node) Prop(name string) string {
	for _, p := range n.Properties {
		if PropName(p.URI) == name && p.Nil != "true" {
			return p.Value
		}
	}
	return ""
}

func (n *Node) HasProp(name string) bool {
	for _, p := range n.Properties {
		if PropName(p.URI) == name && p.Nil != "true" {
			return true
		}
	}
	return false
}

// setProp sets or appends a property without recording a change.
func (n *Node) setProp(name, value string) {
	for i := range n.Properties {
		if PropName(n.Properties[i].URI) == name {
			n.Properties[i].Value = value
			n.Properties[i].Nil = ""
			return
		}
	}
	n.Properties = append(n.Properties, Property{
		URI:      PropURI(name),
		ReadOnly: "false",
		Value:    value,
	})
}

// SetProp sets the named property, reporting whether the document changed.
func (n *Node) SetProp(name, value string) bool {
	if n.Prop(name) == value && n.HasProp(name) {
		return false
	}
	n.setProp(name, value)
	return true
}

// DelProp marks the named property for deletion. The property element
// stays in the document flagged xsi:nil so the service drops it on update.
func (n *Node) DelProp(name string) bool {
	for i := range n.Properties {
		if PropName(n.Properties[i].URI) == name {
			if n.Properties[i].Nil == "true" {
				return false
			}
			n.Properties[i].Nil = "true"
			n.Properties[i].Value = ""
			return true
		}
	}
	return false
}

// ExtProps returns the non-reserved properties, short name to value.
func (n *Node) ExtProps() map[string]string {
	ext := make(map[string]string)
	for _, p := range n.Properties {
		name := PropName(p.URI)
		if IsReservedProp(name) || p.Nil == "true" {
			continue
		}
		ext[name] = p.Value
	}
	return ext
}

// groupSet reports whether a group property value names a real group.
// The service sends the literal "NONE" for unset groups.
func groupSet(v string) bool {
	return v != "" && v != "NONE"
}

// Size returns the length property in bytes.
func (n *Node) Size() int64 {
	v, err := strconv.ParseInt(n.Prop("length"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ModTime returns the date property. The zero time is returned when the
// property is missing or malformed.
func (n *Node) ModTime() time.Time {
	t, err := ParseNodeDate(n.Prop("date"))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Mode maps the sharing properties onto a unix file mode. The owner can
// always read and write, group bits track the groupread and groupwrite
// properties and the public flag grants read to others.
func (n *Node) Mode() os.FileMode {
	mode := os.FileMode(0700)
	if n.IsDir() {
		mode |= os.ModeDir
	}
	if groupSet(n.Prop("groupread")) {
		mode |= 0050
	}
	if groupSet(n.Prop("groupwrite")) {
		mode |= 0020
	}
	if n.IsPublic() {
		mode |= 0005
	}
	return mode
}

// Chmod applies a unix style mode to the sharing properties. Only the
// public flag and the presence of the group permissions can be changed
// this way: group membership itself is set through the groupread and
// groupwrite properties. Reports whether the document changed.
func (n *Node) Chmod(mode os.FileMode) bool {
	changed := false
	if mode&0004 != 0 {
		changed = n.SetProp("ispublic", "true") || changed
	} else {
		changed = n.SetProp("ispublic", "false") || changed
	}
	if mode&0040 != 0 {
		changed = n.SetProp("groupread", n.Prop("groupread")) || changed
	} else {
		changed = n.SetProp("groupread", "") || changed
	}
	if mode&0020 != 0 {
		changed = n.SetProp("groupwrite", n.Prop("groupwrite")) || changed
	} else {
		changed = n.SetProp("groupwrite", "") || changed
	}
	return changed
}

var creatorRE = regexp.MustCompile(`CN=([^,]*)`)

// Creator returns the short form of the creator property, the common
// name of the certificate distinguished name, lowercased with spaces
// collapsed to underscores.
func (n *Node) Creator() string {
	v := n.Prop("creator")
	if m := creatorRE.FindStringSubmatch(v); m != nil {
		v = m[1]
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), " ", "_"))
}

// NodeInfo is the listing view of a node.
type NodeInfo struct {
	Name        string
	Permissions string
	Creator     string
	ReadGroup   string
	WriteGroup  string
	Size        int64
	Date        time.Time
	IsDir       bool
	IsLink      bool
	Target      string
}

// Info collects the listing view of this node.
func (n *Node) Info() NodeInfo {
	perm := []byte("----------")
	if n.IsDir() {
		perm[0] = 'd'
	}
	if n.IsLink() {
		perm[0] = 'l'
	}
	perm[1] = 'r'
	perm[2] = 'w'
	readGroup := n.Prop("groupread")
	if groupSet(readGroup) {
		perm[4] = 'r'
	} else {
		readGroup = "NONE"
	}
	writeGroup := n.Prop("groupwrite")
	if groupSet(writeGroup) {
		perm[5] = 'w'
	} else {
		writeGroup = "NONE"
	}
	if n.IsPublic() {
		perm[7] = 'r'
	}
	return NodeInfo{
		Name:        n.Name(),
		Permissions: string(perm),
		Creator:     n.Creator(),
		ReadGroup:   readGroup,
		WriteGroup:  writeGroup,
		Size:        n.Size(),
		Date:        n.ModTime(),
		IsDir:       n.IsDir(),
		IsLink:      n.IsLink(),
		Target:      n.Target,
	}
}

// InfoList returns the listing for this node: the children of a
// container, or the node itself for anything else.
func (n *Node) InfoList() []NodeInfo {
	if !n.IsDir() {
		return []NodeInfo{n.Info()}
	}
	infos := make([]NodeInfo, 0, len(n.Nodes))
	for i := range n.Nodes {
		infos = append(infos, n.Nodes[i].Info())
	}
	return infos
}

const nodeDateLayout = "2006-01-02T15:04:05"

// ParseNodeDate reads the date property format, with or without
// fractional seconds, as UTC.
func ParseNodeDate(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	if t, err := time.ParseInLocation(nodeDateLayout+".000", s, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation(nodeDateLayout, s, time.UTC)
}

// FormatNodeDate renders a time the way the date property carries it.
func FormatNodeDate(t time.Time) string {
	return t.UTC().Format(nodeDateLayout + ".000")
}
