package ncbi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// Request is one outbound call to an NCBI endpoint.
type Request struct {
	// Method is http.MethodGet or http.MethodPost.
	Method string
	URL    string
	Params url.Values
}

// Response is the status and full body of a call.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends requests. Non-2xx responses are returned, not treated as
// errors; an error means no response was received.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(context.Context, *Request) (*Response, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport implements Transport with net/http. GET parameters go into
// the query string, POST parameters into a form-encoded body.
type HTTPTransport struct {
	// Client defaults to http.DefaultClient.
	Client    *http.Client
	UserAgent string
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	var (
		httpReq *http.Request
		err     error
	)
	switch req.Method {
	case http.MethodPost:
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, req.URL, strings.NewReader(req.Params.Encode()))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case http.MethodGet, "":
		target := req.URL
		if len(req.Params) > 0 {
			target += "?" + req.Params.Encode()
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	default:
		return nil, errors.Newf("unsupported method %q", req.Method)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if t.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", httpReq.Method, req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response body from %s", req.URL)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
