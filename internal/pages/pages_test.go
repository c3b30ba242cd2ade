package pages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKnownPages(t *testing.T) {
	for _, id := range []string{"home", "about", "contact", "princess", "book"} {
		p, err := Parse(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, p.String())
	}
}

func TestParseUnknownPages(t *testing.T) {
	cases := []string{"", "Home", "ABOUT", " home", "home ", "princessss", "../etc/passwd", "<script>"}
	for _, id := range cases {
		_, err := Parse(id)
		require.Error(t, err, "%q", id)
		assert.True(t, errors.Is(err, ErrPageNotFound), "%q", id)

		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, id, nf.Requested)
	}
}

func TestNotFoundMessageQuotesRequestedValue(t *testing.T) {
	_, err := Parse("princessss")
	require.Error(t, err)
	assert.Equal(t, `No such static page: "princessss"`, err.Error())
	assert.Contains(t, err.Error(), `"princessss"`)
}

func TestAllIsOrderedAndCopied(t *testing.T) {
	got := All()
	require.Equal(t, []Page{Home, About, Contact, Princess, Book}, got)

	got[0] = "mutated"
	assert.Equal(t, Home, All()[0])
}

func TestPagePaths(t *testing.T) {
	assert.Equal(t, "/", Home.Path())
	assert.Equal(t, "/about", About.Path())
	assert.Equal(t, "/princess", Princess.Path())
	assert.Equal(t, "/book", Book.Path())
	assert.Equal(t, "/pages/contact", Contact.Path())
}

func TestNegotiateFormat(t *testing.T) {
	cases := map[string]Format{
		"":                                  Document,
		"text/html":                         Document,
		"*/*":                               Document,
		"text/javascript":                   Script,
		"application/javascript":            Script,
		"text/javascript, */*; q=0.01":      Script,
		"text/html, text/javascript":        Document,
		"text/html;q=0.5, text/javascript":  Script,
		"text/javascript;q=0, text/html":    Document,
		"image/png":                         Document,
		"TEXT/JAVASCRIPT":                   Script,
		"application/json, text/javascript": Script,
	}
	for accept, want := range cases {
		assert.Equal(t, want, NegotiateFormat(accept), "Accept: %q", accept)
	}
}

func TestResolveKnownPage(t *testing.T) {
	r, err := Resolve("home", "")
	require.NoError(t, err)
	assert.Equal(t, Render{Page: Home, Format: Document}, r)

	r, err = Resolve("about", "text/javascript")
	require.NoError(t, err)
	assert.Equal(t, Render{Page: About, Format: Script}, r)
}

func TestResolveRejectsBeforeNegotiating(t *testing.T) {
	r, err := Resolve("Home", "text/javascript")
	require.ErrorIs(t, err, ErrPageNotFound)
	assert.Equal(t, Render{}, r)
}

func TestResolveIsIdempotent(t *testing.T) {
	for _, id := range []string{"book", "nope"} {
		r1, err1 := Resolve(id, "text/javascript")
		r2, err2 := Resolve(id, "text/javascript")
		assert.Equal(t, r1, r2)
		if err1 == nil {
			assert.NoError(t, err2)
			continue
		}
		assert.Equal(t, err1.Error(), err2.Error())
	}
}
