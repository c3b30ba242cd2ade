package pages

// Render is the outcome of resolving a page request: which view to render and how.
type Render struct {
	Page   Page
	Format Format
}

// Resolve validates id and, only once it is known to be valid, negotiates the response
// format from the Accept header. It has no side effects.
func Resolve(id, accept string) (Render, error) {
	p, err := Parse(id)
	if err != nil {
		return Render{}, err
	}
	return Render{Page: p, Format: NegotiateFormat(accept)}, nil
}
