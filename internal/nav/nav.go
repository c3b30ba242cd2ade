package nav

import "fairytaleparty.co.uk/web/internal/pages"

// Item represents a top-level navigation item.
type Item struct {
	Page  pages.Page
	DOMID string // id of the <li>, e.g. "about_link"
	Label string
	Async bool   // loaded in place by application.js
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Page   pages.Page
	DOMID  string
	Href   string
	Label  string
	Async  bool
	Active bool
}

// Crumb represents a breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Page: pages.Home, DOMID: "home_link", Label: "Home"},
	{Page: pages.About, DOMID: "about_link", Label: "About", Async: true},
	{Page: pages.Princess, DOMID: "princess_link", Label: "Princesses", Async: true},
	{Page: pages.Book, DOMID: "book_link", Label: "Book", Async: true},
	{Page: pages.Contact, DOMID: "contact_link", Label: "Contact"},
}

// Build renders navigation items with the current page marked active.
func Build(current pages.Page) []RenderedItem {
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Page:   it.Page,
			DOMID:  it.DOMID,
			Href:   it.Page.Path(),
			Label:  it.Label,
			Async:  it.Async,
			Active: it.Page == current,
		})
	}
	return items
}

// Breadcrumbs returns Home followed by the current page, unless current is Home.
func Breadcrumbs(current pages.Page) []Crumb {
	crumbs := []Crumb{{Href: "/", Label: "Home", Active: current == pages.Home}}
	if current == pages.Home {
		return crumbs
	}
	return append(crumbs, Crumb{Href: current.Path(), Label: current.Title(), Active: true})
}
