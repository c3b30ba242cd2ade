package pages

import (
	"sort"
	"strconv"
	"strings"
)

// Format is the response mode chosen for a resolved page.
type Format int

const (
	// Document renders the page inside the full site layout.
	Document Format = iota
	// Script renders executable JavaScript that swaps the page into the current document.
	Script
)

func (f Format) String() string {
	if f == Script {
		return "script"
	}
	return "document"
}

// ContentType returns the response Content-Type for the format.
func (f Format) ContentType() string {
	if f == Script {
		return "text/javascript; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

var mediaFormats = map[string]Format{
	"text/javascript":          Script,
	"application/javascript":   Script,
	"application/x-javascript": Script,
	"application/ecmascript":   Script,
	"text/html":                Document,
	"application/xhtml+xml":    Document,
	"*/*":                      Document,
}

// NegotiateFormat picks a Format from an Accept header. Ranges are ordered by q-value,
// ties keep header order; the first recognised range wins. Anything else is Document.
func NegotiateFormat(accept string) Format {
	type mediaPref struct {
		media string
		q     float64
		pos   int
	}
	prefs := make([]mediaPref, 0, 4)
	for i, raw := range strings.Split(accept, ",") {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		q := 1.0
		if sc := strings.IndexByte(p, ';'); sc != -1 {
			params := p[sc+1:]
			p = strings.TrimSpace(p[:sc])
			for _, param := range strings.Split(params, ";") {
				param = strings.TrimSpace(param)
				if strings.HasPrefix(param, "q=") {
					if v, err := parseQValue(strings.TrimPrefix(param, "q=")); err == nil {
						q = v
					}
				}
			}
		}
		if q == 0 {
			continue
		}
		prefs = append(prefs, mediaPref{media: strings.ToLower(p), q: q, pos: i})
	}
	sort.SliceStable(prefs, func(i, j int) bool {
		if prefs[i].q == prefs[j].q {
			return prefs[i].pos < prefs[j].pos
		}
		return prefs[i].q > prefs[j].q
	})
	for _, mp := range prefs {
		if f, ok := mediaFormats[mp.media]; ok {
			return f
		}
	}
	return Document
}

// parseQValue parses a qvalue per RFC 9110, clamped to [0, 1].
func parseQValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "1", "1.0", "1.00", "1.000":
		return 1.0, nil
	case "0", "0.0", "0.00", "0.000":
		return 0.0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v, nil
}
