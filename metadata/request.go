package metadata

import (
	"net/url"
)

// Request is a GetMetadata transaction.
type Request struct {
	Type   Type
	ID     string
	Format Format
}

// NewRequest creates a COMPACT request for the given type and ID.
// An empty id selects the root ("0").
func NewRequest(t Type, id string) *Request {
	if id == "" {
		id = IDRoot
	}
	return &Request{Type: t, ID: id, Format: FormatCompact}
}

// Query returns the request as URL query parameters.
func (r *Request) Query() url.Values {
	q := url.Values{}
	q.Set("Type", string(r.Type))
	q.Set("ID", r.ID)
	format := r.Format
	if format == "" {
		format = FormatCompact
	}
	q.Set("Format", string(format))
	return q
}

// URL returns base with the request's query parameters added. Parameters
// already in base (such as "action=getmetadata") are kept; Type, ID and
// Format replace any value base has for them.
func (r *Request) URL(base *url.URL) *url.URL {
	u := *base
	q := base.Query()
	for k, v := range r.Query() {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return &u
}
