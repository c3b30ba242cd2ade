package seo

import (
	"strings"
	"testing"
)

func TestOrganizationOmitsEmptyFields(t *testing.T) {
	got := JSON(Organization("Fairytale Party", "", ""))
	if strings.Contains(got, `"url"`) || strings.Contains(got, `"email"`) {
		t.Fatalf("expected url/email to be omitted, got %s", got)
	}
	if !strings.Contains(got, `"@type":"Organization"`) {
		t.Fatalf("expected Organization type, got %s", got)
	}
}

func TestBreadcrumbListPositions(t *testing.T) {
	got := BreadcrumbList([]BreadcrumbItem{
		{Name: "Home", Item: "https://example.com/"},
		{Name: "About Us", Item: "https://example.com/about"},
	})
	el, ok := got["itemListElement"].([]map[string]any)
	if !ok || len(el) != 2 {
		t.Fatalf("unexpected items: %#v", got["itemListElement"])
	}
	if el[1]["position"] != 2 || el[1]["name"] != "About Us" {
		t.Fatalf("unexpected second crumb: %#v", el[1])
	}
}
