package types

import (
	"encoding/xml"
	"io"
)

// Transfer is the document posted to the synchronous transfer endpoint.
// A move is a transfer of the target to the direction URI with
// keepBytes false.
type Transfer struct {
	XMLName   xml.Name `xml:"transfer"`
	Xmlns     string   `xml:"xmlns,attr,omitempty"`
	XmlnsVOS  string   `xml:"xmlns:vos,attr,omitempty"`
	Target    string   `xml:"target"`
	Direction string   `xml:"direction"`
	KeepBytes string   `xml:"keepBytes"`
}

// NewMoveTransfer builds the transfer document that moves src to dest.
func NewMoveTransfer(src, dest NodeURI) *Transfer {
	return &Transfer{
		Target:    src.String(),
		Direction: dest.String(),
		KeepBytes: "false",
	}
}

// ParseTransfer reads a transfer document.
func ParseTransfer(r io.Reader) (*Transfer, error) {
	t := &Transfer{}
	if err := xml.NewDecoder(r).Decode(t); err != nil {
		return nil, Wrap(ErrBadRequest, err)
	}
	return t, nil
}

// XML renders the transfer document.
func (t *Transfer) XML() ([]byte, error) {
	t.Xmlns = VOSNS
	t.XmlnsVOS = VOSNS
	body, err := xml.Marshal(t)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// IsMove reports whether the transfer asks for the bytes to be dropped
// at the source, which is how a rename is expressed.
func (t *Transfer) IsMove() bool {
	return t.KeepBytes == "false"
}
