// Package status models the point-in-time state of a game server and
// implements the network probe that produces it.
//
// A probe either returns a [Snapshot] of a live server or a [*ProbeError].
// Callers that only need something to draw use [Resolve], which turns any
// failure into the synthetic offline snapshot from [Offline].
package status

import (
	"context"
	"errors"
	"image"
	"log/slog"
)

// OfflineVersion is the version label carried by synthetic offline snapshots.
const OfflineVersion = "Offline"

// UnknownVersion is used when a live server does not report a version name.
const UnknownVersion = "Unknown"

// ///////////////////////////////////////////////
// Snapshot
// ///////////////////////////////////////////////

// Snapshot is the status of one server at one instant. It is treated as
// immutable once returned by a probe.
type Snapshot struct {
	// Online reports whether the server answered the status request.
	Online bool
	// Description is the raw message of the day. It may still contain
	// inline formatting codes; rendering sanitizes it.
	Description string
	// PlayersOnline is the reported number of connected players.
	PlayersOnline int
	// PlayersMax is the reported player capacity.
	PlayersMax int
	// LatencyMS is the round-trip time in milliseconds; valid only when
	// HasLatency is true.
	LatencyMS int
	// HasLatency is false for offline snapshots.
	HasLatency bool
	// Version is the server's version label, [UnknownVersion] when not
	// reported and [OfflineVersion] for synthetic offline snapshots.
	Version string
	// Icon is the decoded server favicon, or nil.
	Icon image.Image
	// Failure explains why an offline snapshot was synthesized. Empty for
	// live snapshots.
	Failure Reason
}

// Offline returns the synthetic snapshot substituted for a failed probe.
func Offline(reason Reason) Snapshot {
	return Snapshot{
		Online:  false,
		Version: OfflineVersion,
		Failure: reason,
	}
}

// ///////////////////////////////////////////////
// Failures
// ///////////////////////////////////////////////

// Reason classifies why a probe failed.
type Reason string

const (
	// ReasonTimeout means the probe deadline expired.
	ReasonTimeout Reason = "timeout"
	// ReasonUnreachable covers DNS failures and refused connections.
	ReasonUnreachable Reason = "unreachable"
	// ReasonProtocol means the peer answered with something that is not a
	// valid status response.
	ReasonProtocol Reason = "protocol"
)

// ProbeError is returned by probes. It wraps the underlying cause.
type ProbeError struct {
	Reason  Reason
	Address string
	Err     error
}

func (e *ProbeError) Error() string {
	return "probe " + e.Address + ": " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ReasonOf extracts the failure reason from err. Errors that are not a
// [*ProbeError] are reported as [ReasonProtocol], except context deadline
// errors which map to [ReasonTimeout].
func ReasonOf(err error) Reason {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonProtocol
}

// ///////////////////////////////////////////////
// Prober
// ///////////////////////////////////////////////

// Prober fetches a status snapshot for an address ("host" or "host:port").
type Prober interface {
	Probe(ctx context.Context, address string) (Snapshot, error)
}

// ProberFunc adapts a function to the [Prober] interface.
type ProberFunc func(ctx context.Context, address string) (Snapshot, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, address string) (Snapshot, error) {
	return f(ctx, address)
}

// Resolve probes address and never fails: on error it logs the reason and
// returns [Offline].
func Resolve(ctx context.Context, p Prober, address string) Snapshot {
	snap, err := p.Probe(ctx, address)
	if err != nil {
		reason := ReasonOf(err)
		slog.Warn("status probe failed", "address", address, "reason", string(reason), "error", err)
		return Offline(reason)
	}
	return snap
}
