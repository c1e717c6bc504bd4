// Package awstest stubs AWS service endpoints behind an http.RoundTripper so
// that real SDK clients can be exercised without network access.
package awstest

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const Region = "us-east-1"

// Config returns an SDK config whose requests all go to rt.
func Config(rt http.RoundTripper) aws.Config {
	cfg := aws.Config{
		Region:      Region,
		Credentials: credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		HTTPClient:  &http.Client{Transport: rt},
	}
	cfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: "https://aws.test", SigningRegion: region, HostnameImmutable: true}, nil
		},
	)
	return cfg
}

// Response is a canned reply. Status defaults to 200.
type Response struct {
	Status int
	Body   string
	Header map[string]string
}

// RoundTripper answers requests by operation name. Query protocols (STS, EC2,
// IAM) are keyed by the Action form field, JSON protocols by X-Amz-Target and
// REST protocols by "METHOD path".
type RoundTripper struct {
	ContentType string
	Responses   map[string]Response

	mu    sync.Mutex
	calls []string
}

func NewQuery(responses map[string]string) *RoundTripper {
	return &RoundTripper{ContentType: "text/xml", Responses: okResponses(responses)}
}

func NewJSON(contentType string, responses map[string]string) *RoundTripper {
	return &RoundTripper{ContentType: contentType, Responses: okResponses(responses)}
}

func okResponses(bodies map[string]string) map[string]Response {
	out := make(map[string]Response, len(bodies))
	for key, body := range bodies {
		out[key] = Response{Body: body}
	}
	return out
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	op := operation(req)
	rt.mu.Lock()
	rt.calls = append(rt.calls, op)
	resp, ok := rt.Responses[op]
	rt.mu.Unlock()
	if !ok {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader("unknown operation " + op)),
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Request:    req,
		}, nil
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := http.Header{"Content-Type": []string{rt.ContentType}}
	for key, value := range resp.Header {
		header.Set(key, value)
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(strings.TrimSpace(resp.Body))),
		Header:     header,
		Request:    req,
	}, nil
}

// Calls lists the operations seen so far, in order.
func (rt *RoundTripper) Calls() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.calls...)
}

func operation(req *http.Request) string {
	if target := req.Header.Get("X-Amz-Target"); target != "" {
		return target
	}
	if req.Body != nil && strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		body, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if values, err := url.ParseQuery(string(body)); err == nil && values.Get("Action") != "" {
			return values.Get("Action")
		}
	}
	if action := req.URL.Query().Get("Action"); action != "" {
		return action
	}
	return req.Method + " " + req.URL.Path
}
