package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"saarthi.opentransit.in/internal/metrics"
)

// latencyTrackingRoundTripper is a custom HTTP RoundTripper that wraps another
// RoundTripper to measure and record the latency of each outgoing request.
//
// Every upstream call the service makes (Nominatim, the Overpass mirrors, the
// routing profile, GTFS bundle downloads, remote config) goes through the one
// pooled client, so wrapping its transport captures all of them without
// touching the individual call sites.
type latencyTrackingRoundTripper struct {
	// next is the underlying RoundTripper that actually performs the request.
	next http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface.
// It records the time before and after delegating to the next RoundTripper,
// then exports the observed duration to Prometheus under metrics.OutgoingLatency.
func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	// Default to "error" if the request failed or response is nil
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// Label with scheme + host + path only. Query strings carry free-text
	// place names and coordinates, which would explode label cardinality.
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(
		safeURL,
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns the HTTP client shared by every upstream consumer.
//
// The transport configuration is tuned for a small set of repeatedly queried
// hosts (a handful of Overpass mirrors, one Nominatim endpoint, one routing
// profile):
//
//   - MaxIdleConns: 100 and MaxIdleConnsPerHost: 10
//     Keep-alive connections are reused across route requests, which avoids
//     repeated TCP/TLS handshakes against the same few providers.
//
//   - IdleConnTimeout: 90s
//     Idle connections survive quiet periods between route requests.
//
//   - DialContext (Timeout: 5s, KeepAlive: 30s)
//     Fail fast when a mirror is unreachable; the backoff store takes over
//     from there.
//
//   - TLSHandshakeTimeout: 5s
//     Caps the TLS handshake so a degraded mirror cannot stall a request
//     before the body timer even starts.
//
//   - http.Client Timeout: 30s
//     The full request lifecycle bound. Overpass queries legitimately run
//     long (the query body allows the server 25s), so this sits above that;
//     faster upstreams are bounded tighter by their own request contexts.
//
// The transport is wrapped with latencyTrackingRoundTripper so every outgoing
// request lands in the Prometheus latency histogram.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	instrumentedTransport := &latencyTrackingRoundTripper{next: transport}

	client := &http.Client{
		Transport: instrumentedTransport,
		Timeout:   30 * time.Second,
	}
	return client
}
