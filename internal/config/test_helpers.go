package config

import "net/http"

// mockRoundTripper substitutes for a real transport in loader and backoff
// tests, counting attempts so retry behavior can be asserted.
type mockRoundTripper struct {
	calls   int
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.handler(req)
}