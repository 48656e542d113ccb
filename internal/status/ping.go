// Status probe against a single game server.
//
// A probe resolves the address (SRV first), performs the handshake and
// status exchange, then times a ping round trip for the latency figure.

package status

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// protocolVersion is sent in the handshake. Status requests are answered by
// servers of any version, so any value works; 47 matches 1.8 clients.
const protocolVersion int32 = 47

// ///////////////////////////////////////////////
// Pinger
// ///////////////////////////////////////////////

// Dialer is the subset of [net.Dialer] used by [Pinger].
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Pinger implements [Prober] with the Java Edition Server List Ping
// exchange: handshake, status request, then a ping/pong used to measure
// latency.
type Pinger struct {
	// Timeout bounds the whole exchange. Zero means only ctx applies.
	Timeout time.Duration
	// Dialer opens the TCP connection; nil uses a default net.Dialer.
	Dialer Dialer
	// Resolver performs SRV lookups; nil uses net.DefaultResolver.
	Resolver SRVResolver
}

// NewPinger returns a Pinger with the given overall timeout.
func NewPinger(timeout time.Duration) *Pinger {
	return &Pinger{Timeout: timeout}
}

type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     string          `json:"favicon"`
}

// Probe contacts address and returns its status. Errors are always a
// [*ProbeError].
func (p *Pinger) Probe(ctx context.Context, address string) (Snapshot, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	target, err := ResolveTarget(ctx, p.resolver(), address)
	if err != nil {
		return Snapshot{}, &ProbeError{Reason: ReasonUnreachable, Address: address, Err: err}
	}

	conn, err := p.dialer().DialContext(ctx, "tcp", target.String())
	if err != nil {
		return Snapshot{}, p.fail(ctx, address, ReasonUnreachable, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	start := time.Now()
	resp, err := exchangeStatus(conn, target)
	if err != nil {
		return Snapshot{}, p.fail(ctx, address, ReasonProtocol, err)
	}
	latency := time.Since(start)
	if rtt, pingErr := exchangePing(conn); pingErr == nil {
		latency = rtt
	} else {
		slog.Debug("ping after status failed, using status round trip", "address", address, "error", pingErr)
	}

	snap := Snapshot{
		Online:        true,
		Description:   FlattenDescription(resp.Description),
		PlayersOnline: max(resp.Players.Online, 0),
		PlayersMax:    max(resp.Players.Max, 0),
		LatencyMS:     int(latency.Round(time.Millisecond) / time.Millisecond),
		HasLatency:    true,
		Version:       resp.Version.Name,
	}
	if snap.Version == "" {
		snap.Version = UnknownVersion
	}
	if resp.Favicon != "" {
		icon, iconErr := DecodeFavicon(resp.Favicon)
		if iconErr != nil {
			slog.Debug("ignoring unreadable favicon", "address", address, "error", iconErr)
		} else {
			snap.Icon = icon
		}
	}
	return snap, nil
}

func (p *Pinger) dialer() Dialer {
	if p.Dialer != nil {
		return p.Dialer
	}
	return &net.Dialer{}
}

func (p *Pinger) resolver() SRVResolver {
	if p.Resolver != nil {
		return p.Resolver
	}
	return net.DefaultResolver
}

// fail wraps err, upgrading the reason to timeout when the deadline fired.
func (p *Pinger) fail(ctx context.Context, address string, reason Reason, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		reason = ReasonTimeout
	}
	return &ProbeError{Reason: reason, Address: address, Err: err}
}

// ///////////////////////////////////////////////
// Exchanges
// ///////////////////////////////////////////////

func exchangeStatus(conn net.Conn, target Target) (*statusResponse, error) {
	if err := writePacket(conn, packetHandshake, handshakePayload(protocolVersion, target.Host, target.Port)); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}
	if err := writePacket(conn, packetStatus, nil); err != nil {
		return nil, fmt.Errorf("write status request: %w", err)
	}

	id, body, err := readPacket(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if id != packetStatus {
		return nil, fmt.Errorf("unexpected packet id 0x%02x", id)
	}
	payload, err := readString(body)
	if err != nil {
		return nil, fmt.Errorf("read status json: %w", err)
	}
	var resp statusResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("parse status json: %w", err)
	}
	return &resp, nil
}

func exchangePing(conn net.Conn) (time.Duration, error) {
	start := time.Now()
	token := uint64(start.UnixMilli())
	if err := writePacket(conn, packetPing, binary.BigEndian.AppendUint64(nil, token)); err != nil {
		return 0, fmt.Errorf("write ping: %w", err)
	}
	id, body, err := readPacket(bufio.NewReader(conn))
	if err != nil {
		return 0, fmt.Errorf("read pong: %w", err)
	}
	if id != packetPing || body.Len() != 8 {
		return 0, fmt.Errorf("unexpected pong packet 0x%02x", id)
	}
	var echoed [8]byte
	_, _ = body.Read(echoed[:])
	if binary.BigEndian.Uint64(echoed[:]) != token {
		return 0, errors.New("pong payload mismatch")
	}
	return time.Since(start), nil
}
