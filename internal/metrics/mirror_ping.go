package metrics

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

// statusEndpoint derives a mirror's status URL from its interpreter URL.
// Overpass serves both under the same /api prefix.
func statusEndpoint(mirror string) string {
	return strings.TrimSuffix(mirror, "/interpreter") + "/status"
}

// mirrorPing probes the Overpass mirror's status endpoint and updates the
// reachability and available-slot gauges.
func mirrorPing(client *http.Client, mirror string, userAgent string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusEndpoint(mirror), nil)
	if err != nil {
		MirrorStatus.WithLabelValues(mirror).Set(0)
		return
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		err := fmt.Errorf("failed to ping Overpass mirror %s: %v", mirror, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("mirror", mirror),
			ExtraContext: map[string]interface{}{
				"status_url": statusEndpoint(mirror),
			},
		})
		MirrorStatus.WithLabelValues(mirror).Set(0)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		MirrorStatus.WithLabelValues(mirror).Set(0)
		return
	}

	MirrorStatus.WithLabelValues(mirror).Set(1)
	if slots, ok := parseAvailableSlots(resp.Body); ok {
		MirrorAvailableSlots.WithLabelValues(mirror).Set(float64(slots))
	}
}

// parseAvailableSlots scans the plain-text status page for the number of
// request slots free right now. A page that lists only "Slot available
// after" lines reports zero free slots.
func parseAvailableSlots(r io.Reader) (int, bool) {
	scanner := bufio.NewScanner(r)
	found := false
	slots := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.Contains(line, "available now"):
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				continue
			}
			slots = n
			found = true
		case strings.HasPrefix(line, "Slot available after:"):
			found = true
		}
	}
	return slots, found
}
