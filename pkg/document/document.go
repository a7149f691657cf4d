// Package document is the primary document codec and the text-level
// operations the snapshot engine performs on serialized documents: id
// lookup, cross-notation attribute normalization and placeholder injection.
//
// The primary document is XML:
//
//	<document>
//	  <shape id="Task_1" type="bpmn:Task" name="Review" x="10" y="10" width="100" height="80"/>
//	  <connection id="Flow_1" type="bpmn:SequenceFlow" sourceRef="Task_1" targetRef="Task_2">
//	    <waypoint x="110" y="50"/>
//	    <waypoint x="200" y="50"/>
//	  </connection>
//	  <view zoom="1" x="0" y="0" width="1200" height="800"/>
//	</document>
package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const rootTag = "document"

// Document is the decoded primary document.
type Document struct {
	XMLName     xml.Name     `xml:"document"`
	Shapes      []Shape      `xml:"shape"`
	Connections []Connection `xml:"connection"`
	View        *View        `xml:"view,omitempty"`
}

// Shape is one shape entry.
type Shape struct {
	ID          string  `xml:"id,attr"`
	Type        string  `xml:"type,attr"`
	Name        string  `xml:"name,attr,omitempty"`
	Text        string  `xml:"text,attr,omitempty"`
	Parent      string  `xml:"parent,attr,omitempty"`
	ParentRef   string  `xml:"parentRef,attr,omitempty"`
	LabelTarget string  `xml:"labelTarget,attr,omitempty"`
	X           float64 `xml:"x,attr"`
	Y           float64 `xml:"y,attr"`
	Width       float64 `xml:"width,attr"`
	Height      float64 `xml:"height,attr"`
	Placeholder bool    `xml:"placeholder,attr,omitempty"`
}

// Connection is one connection entry. Source and Target hold the legacy
// attribute names some extension notations are written with; importers only
// read SourceRef and TargetRef, so documents must be normalized first.
type Connection struct {
	ID        string     `xml:"id,attr"`
	Type      string     `xml:"type,attr"`
	SourceRef string     `xml:"sourceRef,attr,omitempty"`
	TargetRef string     `xml:"targetRef,attr,omitempty"`
	Source    string     `xml:"source,attr,omitempty"`
	Target    string     `xml:"target,attr,omitempty"`
	Waypoints []Waypoint `xml:"waypoint"`
}

// Waypoint is one routed point of a connection.
type Waypoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// View is the persisted canvas viewport.
type View struct {
	Zoom   float64 `xml:"zoom,attr"`
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

// ParseError is returned when document text cannot be decoded.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return "parsing primary document: " + e.Err.Error()
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes document text.
func Parse(text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ParseError{Err: errors.New("empty document")}
	}

	doc := &Document{}
	if err := xml.Unmarshal([]byte(text), doc); err != nil {
		return nil, ParseError{Err: err}
	}
	return doc, nil
}

// Encode serializes the document with indentation.
func (d *Document) Encode() (string, error) {
	data, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding primary document: %w", err)
	}
	return xml.Header + string(data) + "\n", nil
}

// Empty returns the text of a document with no content.
func Empty() string {
	return xml.Header + "<" + rootTag + "></" + rootTag + ">\n"
}
