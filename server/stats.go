package server

import (
	"sync/atomic"
	"time"

	"github.com/AnishMulay/filexfer/protocol"
)

// Stats counts connection and request activity. The zero value is ready
// to use and safe for concurrent use.
type Stats struct {
	started time.Time

	accepted        atomic.Int64
	active          atomic.Int64
	queued          atomic.Int64
	closed          atomic.Int64
	requestsOK      atomic.Int64
	requestsError   atomic.Int64
	requestsFailed  atomic.Int64
	oversizeFrames  atomic.Int64
	transportErrors atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64
	storageEvents   atomic.Int64
}

func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Uptime          string `json:"uptime"`
	Accepted        int64  `json:"accepted"`
	Active          int64  `json:"active"`
	Queued          int64  `json:"queued"`
	Closed          int64  `json:"closed"`
	RequestsOK      int64  `json:"requests_ok"`
	RequestsError   int64  `json:"requests_error"`
	RequestsFailed  int64  `json:"requests_failed"`
	OversizeFrames  int64  `json:"oversize_frames"`
	TransportErrors int64  `json:"transport_errors"`
	BytesIn         int64  `json:"bytes_in"`
	BytesOut        int64  `json:"bytes_out"`
	StorageEvents   int64  `json:"storage_events"`
}

func (s *Stats) Snapshot() Snapshot {
	var uptime time.Duration
	if !s.started.IsZero() {
		uptime = time.Since(s.started).Truncate(time.Second)
	}
	return Snapshot{
		Uptime:          uptime.String(),
		Accepted:        s.accepted.Load(),
		Active:          s.active.Load(),
		Queued:          s.queued.Load(),
		Closed:          s.closed.Load(),
		RequestsOK:      s.requestsOK.Load(),
		RequestsError:   s.requestsError.Load(),
		RequestsFailed:  s.requestsFailed.Load(),
		OversizeFrames:  s.oversizeFrames.Load(),
		TransportErrors: s.transportErrors.Load(),
		BytesIn:         s.bytesIn.Load(),
		BytesOut:        s.bytesOut.Load(),
		StorageEvents:   s.storageEvents.Load(),
	}
}

// StorageEvent records a change to the storage root seen by the watcher.
func (s *Stats) StorageEvent() {
	s.storageEvents.Add(1)
}

func (s *Stats) request(status protocol.Status) {
	switch status {
	case protocol.StatusOK:
		s.requestsOK.Add(1)
	case protocol.StatusError:
		s.requestsError.Add(1)
	default:
		s.requestsFailed.Add(1)
	}
}
