package pages

import (
	"errors"
	"fmt"
)

// Page identifies one of the fixed static pages served by the site.
type Page string

// Known pages. The set is fixed at compile time; see All for the canonical order.
const (
	Home     Page = "home"
	About    Page = "about"
	Contact  Page = "contact"
	Princess Page = "princess"
	Book     Page = "book"
)

var all = [...]Page{Home, About, Contact, Princess, Book}

var titles = map[Page]string{
	Home:     "Home",
	About:    "About Us",
	Contact:  "Contact",
	Princess: "Princess Parties",
	Book:     "Book a Party",
}

// All returns the known pages in their canonical order. The returned slice is a copy.
func All() []Page {
	out := make([]Page, len(all))
	copy(out, all[:])
	return out
}

// ErrPageNotFound is matched by every error returned for an unknown page identifier.
var ErrPageNotFound = errors.New("pages: not found")

// NotFoundError reports a request for a page outside the known set.
// Requested carries the raw, unvalidated identifier for diagnostics.
type NotFoundError struct {
	Requested string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No such static page: %q", e.Requested)
}

// Is makes errors.Is(err, ErrPageNotFound) hold for NotFoundError values.
func (e *NotFoundError) Is(target error) bool { return target == ErrPageNotFound }

// Parse validates id against the known pages. Matching is exact and case-sensitive.
func Parse(id string) (Page, error) {
	for _, p := range all {
		if string(p) == id {
			return p, nil
		}
	}
	return "", &NotFoundError{Requested: id}
}

// String returns the identifier.
func (p Page) String() string { return string(p) }

// Title returns the human readable page title.
func (p Page) Title() string {
	if t, ok := titles[p]; ok {
		return t
	}
	return string(p)
}

// Path returns the canonical URL path for the page.
func (p Page) Path() string {
	switch p {
	case Home:
		return "/"
	case About, Princess, Book:
		return "/" + string(p)
	default:
		return "/pages/" + string(p)
	}
}
