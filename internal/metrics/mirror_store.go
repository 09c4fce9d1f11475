package metrics

import (
	"context"
	"sync"
	"time"
)

// MirrorObservation records the most recent outcome of a request sent to
// an Overpass mirror.
type MirrorObservation struct {
	Time     time.Time
	Latency  time.Duration
	Failures int
}

// MirrorHealth stores the most recent observation for each Overpass
// mirror, keyed by the mirror's interpreter URL.
//
// The store is fed by the Overpass client after every upstream request
// and is used to:
//   - Expose per-mirror latency through the request duration histogram.
//   - Track consecutive failures so persistent outages stand out from
//     one-off errors.
//   - Age out mirrors that have not been contacted recently.
type MirrorHealth struct {
	Mu    sync.RWMutex
	Store map[string]MirrorObservation
}

// NewMirrorHealth creates a MirrorHealth store with an initialized map.
func NewMirrorHealth() *MirrorHealth {
	return &MirrorHealth{
		Store: make(map[string]MirrorObservation),
	}
}

// Get retrieves the latest observation for a mirror. It returns the
// observation and whether the mirror has been seen at all.
func (mh *MirrorHealth) Get(mirror string) (MirrorObservation, bool) {
	mh.Mu.RLock()
	defer mh.Mu.RUnlock()

	if mh.Store == nil {
		return MirrorObservation{}, false
	}
	observation, ok := mh.Store[mirror]
	return observation, ok
}

// MarkSuccess records a successful request to the mirror, resetting its
// consecutive failure count.
func (mh *MirrorHealth) MarkSuccess(mirror string, latency time.Duration) {
	mh.Mu.Lock()
	defer mh.Mu.Unlock()

	mh.Store[mirror] = MirrorObservation{
		Time:    time.Now().UTC(),
		Latency: latency,
	}
}

// MarkFailure records a failed request to the mirror, incrementing its
// consecutive failure count.
func (mh *MirrorHealth) MarkFailure(mirror string) {
	mh.Mu.Lock()
	defer mh.Mu.Unlock()

	observation := mh.Store[mirror]
	observation.Time = time.Now().UTC()
	observation.Failures++
	mh.Store[mirror] = observation
}

// Count returns the number of mirrors with a recorded observation.
func (mh *MirrorHealth) Count() int {
	mh.Mu.RLock()
	defer mh.Mu.RUnlock()

	return len(mh.Store)
}

// ClearRoutine runs a background process that periodically removes
// observations older than the given threshold.
//
// ctx: Context for canceling the routine.
// timeInterval: Interval at which cleanup checks are performed.
// threshold: Age after which an observation is considered stale and removed.
func (mh *MirrorHealth) ClearRoutine(ctx context.Context, timeInterval, threshold time.Duration) {
	ticker := time.NewTicker(timeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mh.clear(threshold)
		case <-ctx.Done():
			return
		}
	}
}

// clear removes stale observations that have not been updated within the
// given threshold duration.
func (mh *MirrorHealth) clear(threshold time.Duration) {
	mh.Mu.Lock()
	defer mh.Mu.Unlock()

	if len(mh.Store) == 0 {
		return
	}

	now := time.Now().UTC()
	for mirror, observation := range mh.Store {
		if observation.Time.Before(now) && now.Sub(observation.Time) > threshold {
			delete(mh.Store, mirror)
		}
	}
}
