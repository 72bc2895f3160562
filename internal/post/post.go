// Package post models the outbound work of a cross-post run: one WorkItem per
// (post, community) pair.
package post

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedKind = errors.New("unsupported post kind")

// Kind is the post type understood by the content API.
type Kind string

const (
	KindText  Kind = "text"
	KindLink  Kind = "link"
	KindImage Kind = "image"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindText, KindLink, KindImage}

// ParseKind normalizes s and checks it against the supported kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q (want text, link or image)", ErrUnsupportedKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindLink, KindImage:
		return true
	}
	return false
}

// Destination is a community returned by a lookup.
// Exact is set when the community name equals the query verbatim.
type Destination struct {
	Name  string
	Exact bool
}

// WorkItem is one post to be created in one community.
//
// The set of implementations is closed: TextWork, LinkWork and ImageWork.
type WorkItem interface {
	Kind() Kind
	PostTitle() string
	DestinationName() string

	sealed()
}

type TextWork struct {
	Title       string
	Destination string
	Body        string
}

type LinkWork struct {
	Title       string
	Destination string
	URL         string
}

type ImageWork struct {
	Title       string
	Destination string
	URL         string
}

func (TextWork) Kind() Kind                { return KindText }
func (w TextWork) PostTitle() string       { return w.Title }
func (w TextWork) DestinationName() string { return w.Destination }
func (TextWork) sealed()                   {}

func (LinkWork) Kind() Kind                { return KindLink }
func (w LinkWork) PostTitle() string       { return w.Title }
func (w LinkWork) DestinationName() string { return w.Destination }
func (LinkWork) sealed()                   {}

func (ImageWork) Kind() Kind                { return KindImage }
func (w ImageWork) PostTitle() string       { return w.Title }
func (w ImageWork) DestinationName() string { return w.Destination }
func (ImageWork) sealed()                   {}

// Template is the part of a resolved configuration a WorkItem is built from.
type Template struct {
	Kind  Kind
	Title string
	// Body is the text of a text post, or the URL of a link or image post.
	Body string
}

// Build creates the WorkItem for tpl addressed to destination.
func Build(tpl Template, destination string) (WorkItem, error) {
	switch tpl.Kind {
	case KindText:
		return TextWork{Title: tpl.Title, Destination: destination, Body: tpl.Body}, nil
	case KindLink:
		return LinkWork{Title: tpl.Title, Destination: destination, URL: tpl.Body}, nil
	case KindImage:
		return ImageWork{Title: tpl.Title, Destination: destination, URL: tpl.Body}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, string(tpl.Kind))
	}
}
