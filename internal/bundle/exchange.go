package bundle

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
)

// Request is the request half of an exchange. Bundled requests are always
// body-less GETs, so only the method and URL are carried.
type Request struct {
	method string
	url    *url.URL
}

// NewGetRequest returns a GET request addressed at u.
func NewGetRequest(u *url.URL) Request {
	return Request{method: http.MethodGet, url: cloneURL(u)}
}

func (r Request) Method() string { return r.method }

// URL returns a copy of the request URL.
func (r Request) URL() *url.URL { return cloneURL(r.url) }

// Response is the response half of an exchange. Its header and body are
// copied on the way in and on the way out so a constructed response never
// changes.
type Response struct {
	status int
	header http.Header
	body   []byte
}

// NewResponse builds a response from copies of header and body.
func NewResponse(status int, header http.Header, body []byte) Response {
	return Response{
		status: status,
		header: header.Clone(),
		body:   bytes.Clone(body),
	}
}

func (r Response) Status() int { return r.status }

// Header returns a copy of the response headers.
func (r Response) Header() http.Header {
	if r.header == nil {
		return http.Header{}
	}
	return r.header.Clone()
}

// Body returns a copy of the response body.
func (r Response) Body() []byte { return bytes.Clone(r.body) }

// ContentType returns the Content-Type header value, or "".
func (r Response) ContentType() string { return r.header.Get("Content-Type") }

// ContentLength returns the parsed Content-Length header, or -1 when the
// header is missing or malformed.
func (r Response) ContentLength() int64 {
	v := r.header.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Len is the size of the body in bytes, without copying it.
func (r Response) Len() int { return len(r.body) }

// Exchange pairs a request with the response a bundle serves for it.
type Exchange struct {
	Request  Request
	Response Response
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	cp := *u
	if u.User != nil {
		ui := *u.User
		cp.User = &ui
	}
	return &cp
}
