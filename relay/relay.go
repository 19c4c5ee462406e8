package relay

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/dvr/perf"
	"github.com/encodeous/dvr/protocol"
	"github.com/encodeous/dvr/state"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

// Relay is the server side of the routing protocol. It hands every router its link costs, forwards distance vectors
// between neighbours and tells every router to stop once the run is over.
type Relay struct {
	cfg state.RelayCfg
	log *slog.Logger

	listener net.Listener

	// live holds the last time we heard from each router
	live *ttlcache.Cache[int, time.Time]

	mu        sync.Mutex
	costs     [][]int
	links     map[int]*protocol.Link
	conns     map[net.Conn]struct{}
	closed    bool
	quitSent  bool
	allJoined chan struct{}
	drained   chan struct{}
}

func New(cfg state.RelayCfg, log *slog.Logger) (*Relay, error) {
	err := state.RelayConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	costs := make([][]int, len(cfg.Costs))
	for i, row := range cfg.Costs {
		costs[i] = slices.Clone(row)
	}
	live := ttlcache.New[int, time.Time](
		ttlcache.WithTTL[int, time.Time](state.RelayLivenessTTL),
		ttlcache.WithDisableTouchOnHit[int, time.Time](),
	)
	return &Relay{
		cfg:       cfg,
		log:       log,
		live:      live,
		costs:     costs,
		links:     make(map[int]*protocol.Link),
		conns:     make(map[net.Conn]struct{}),
		allJoined: make(chan struct{}),
		drained:   make(chan struct{}),
	}, nil
}

// Listen binds the relay to its configured address. Serve calls it if it has not been called yet.
func (r *Relay) Listen() error {
	listener, err := net.Listen("tcp", r.cfg.Bind)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.cfg.Bind, err)
	}
	r.listener = listener
	r.log.Info("relay listening", "addr", listener.Addr().String(), "routers", r.cfg.Size())
	return nil
}

func (r *Relay) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Live returns the ids of every router heard from within the liveness ttl, in ascending order.
func (r *Relay) Live() []int {
	ids := r.live.Keys()
	slices.Sort(ids)
	return ids
}

// Costs returns a copy of the current cost matrix, including applied topology changes.
func (r *Relay) Costs() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]int, len(r.costs))
	for i, row := range r.costs {
		out[i] = slices.Clone(row)
	}
	return out
}

// Serve accepts routers until every router has been told to quit, or ctx is cancelled.
func (r *Relay) Serve(ctx context.Context) error {
	if r.listener == nil {
		if err := r.Listen(); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsub := r.live.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[int, time.Time]) {
		if reason == ttlcache.EvictionReasonExpired {
			r.log.Warn("router went silent", "id", item.Key(), "last_seen", item.Value())
		}
	})
	defer unsub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_ = r.listener.Close()
		r.closeConns()
		return nil
	})
	g.Go(func() error {
		r.runSchedule(gctx, cancel)
		return nil
	})
	g.Go(func() error {
		r.reportStatus(gctx)
		return nil
	})

	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if gctx.Err() != nil {
				return g.Wait()
			}
			cancel()
			_ = g.Wait()
			return fmt.Errorf("failed to accept: %w", err)
		}
		if !r.track(conn) {
			continue
		}
		g.Go(func() error {
			r.handle(gctx, conn)
			return nil
		})
	}
}

func (r *Relay) track(conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = conn.Close()
		return false
	}
	r.conns[conn] = struct{}{}
	return true
}

func (r *Relay) untrack(conn net.Conn, id int, link *protocol.Link) {
	_ = conn.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn)
	if id != state.NoRoute && r.links[id] == link {
		delete(r.links, id)
	}
	if r.quitSent && len(r.conns) == 0 {
		r.closeDrained()
	}
}

func (r *Relay) closeConns() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for conn := range r.conns {
		_ = conn.Close()
	}
}

// closeDrained must be called with mu held
func (r *Relay) closeDrained() {
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
}

func (r *Relay) handle(ctx context.Context, conn net.Conn) {
	link := protocol.NewLink(conn)
	id := state.NoRoute
	defer func() {
		r.untrack(conn, id, link)
	}()
	r.log.Debug("accepted connection", "remote", conn.RemoteAddr().String())

	for {
		pkt, err := link.ReadPacket()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				r.log.Warn("dropped malformed packet", "remote", conn.RemoteAddr().String(), "err", err)
				perf.PacketsDropped.Add(1)
				continue
			}
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				r.log.Warn("connection failed", "id", id, "err", err)
			}
			r.log.Debug("router disconnected", "id", id)
			return
		}
		perf.PacketsReceived.Add(1)

		switch pkt.Msg.(type) {
		case *protocol.Hello:
			if pkt.Dst != state.ServerId {
				r.log.Debug("ignoring hello not addressed to the relay", "pkt", pkt)
				continue
			}
			err = r.join(pkt.Src, link)
			if err != nil {
				r.log.Warn("rejected hello", "pkt", pkt, "err", err)
				continue
			}
			id = pkt.Src
		case *protocol.Route:
			if id == state.NoRoute || pkt.Src != id {
				r.log.Warn("dropped route from unregistered router", "pkt", pkt, "registered", id)
				perf.PacketsDropped.Add(1)
				continue
			}
			r.live.Set(id, time.Now(), ttlcache.DefaultTTL)
			r.forward(pkt)
		default:
			r.log.Debug("ignoring packet", "pkt", pkt)
		}
	}
}

// join registers the link of a router and answers with its link costs
func (r *Relay) join(id int, link *protocol.Link) error {
	r.mu.Lock()
	if id < 0 || id >= len(r.costs) {
		r.mu.Unlock()
		return fmt.Errorf("router %d is not part of the topology", id)
	}
	if prev, ok := r.links[id]; ok && prev != link {
		r.log.Warn("router reconnected, replacing its link", "id", id)
	}
	r.links[id] = link
	row := slices.Clone(r.costs[id])
	if len(r.links) == len(r.costs) {
		select {
		case <-r.allJoined:
		default:
			close(r.allJoined)
		}
	}
	r.mu.Unlock()

	r.live.Set(id, time.Now(), ttlcache.DefaultTTL)
	r.log.Info("router joined", "id", id, "linkcost", row)
	return r.send(link, protocol.NewHello(state.ServerId, id, row))
}

// forward relays a distance vector to its destination, only along an existing link
func (r *Relay) forward(pkt protocol.Packet) {
	r.mu.Lock()
	var dst *protocol.Link
	linked := pkt.Dst >= 0 && pkt.Dst < len(r.costs) && r.costs[pkt.Src][pkt.Dst] < state.Infinity && pkt.Src != pkt.Dst
	if linked {
		dst = r.links[pkt.Dst]
	}
	r.mu.Unlock()

	if !linked {
		r.log.Debug("dropped route between unlinked routers", "pkt", pkt)
		perf.PacketsDropped.Add(1)
		return
	}
	if dst == nil {
		r.log.Debug("dropped route to router that has not joined", "pkt", pkt)
		perf.PacketsDropped.Add(1)
		return
	}
	if r.send(dst, pkt) == nil {
		perf.RelayedPackets.Add(1)
	}
}

func (r *Relay) send(link *protocol.Link, pkt protocol.Packet) error {
	err := link.WritePacket(pkt)
	if err != nil {
		r.log.Warn("failed to send packet", "pkt", pkt, "err", err)
		perf.SendFailures.Add(1)
		return err
	}
	perf.PacketsSent.Add(1)
	return nil
}

// runSchedule applies topology changes and ends the run, timed from the moment every router has joined
func (r *Relay) runSchedule(ctx context.Context, done context.CancelFunc) {
	select {
	case <-ctx.Done():
		return
	case <-r.allJoined:
	}
	start := time.Now()
	r.log.Info("all routers joined", "routers", r.cfg.Size(), "run_for", r.cfg.RunFor())

	changes := slices.SortedStableFunc(slices.Values(r.cfg.Changes), func(a, b state.TopologyChange) int {
		return cmp.Compare(a.AfterMs, b.AfterMs)
	})
	for _, change := range changes {
		if !sleepUntil(ctx, start.Add(change.After())) {
			return
		}
		r.applyChange(change)
	}
	if !sleepUntil(ctx, start.Add(r.cfg.RunFor())) {
		return
	}
	r.quitAll()

	// give the routers a chance to hang up first
	timer := time.NewTimer(state.RelayQuitGrace)
	defer timer.Stop()
	select {
	case <-r.drained:
		r.log.Info("all routers disconnected")
	case <-timer.C:
		r.log.Warn("routers still connected after quit", "live", r.Live())
	case <-ctx.Done():
	}
	done()
}

// applyChange replaces the link costs of a router, on both ends of every link, and notifies every router whose
// link costs changed
func (r *Relay) applyChange(change state.TopologyChange) {
	r.mu.Lock()
	i := change.Router
	r.costs[i] = slices.Clone(change.Costs)
	changed := []int{i}
	for j := range r.costs {
		if j != i && r.costs[j][i] != change.Costs[j] {
			r.costs[j][i] = change.Costs[j]
			changed = append(changed, j)
		}
	}
	updates := make([]state.Pair[*protocol.Link, protocol.Packet], 0, len(changed))
	for _, j := range changed {
		if link, ok := r.links[j]; ok {
			pkt := protocol.NewRoute(state.ServerId, j, r.costs[j])
			updates = append(updates, state.Pair[*protocol.Link, protocol.Packet]{V1: link, V2: pkt})
		}
	}
	r.mu.Unlock()

	r.log.Info("applying topology change", "router", i, "linkcost", change.Costs, "notified", changed)
	for _, u := range updates {
		_ = r.send(u.V1, u.V2)
	}
}

func (r *Relay) quitAll() {
	r.mu.Lock()
	r.quitSent = true
	links := make(map[int]*protocol.Link, len(r.links))
	for id, link := range r.links {
		links[id] = link
	}
	if len(r.conns) == 0 {
		r.closeDrained()
	}
	r.mu.Unlock()

	r.log.Info("run complete, stopping routers", "routers", len(links))
	for id, link := range links {
		_ = r.send(link, protocol.NewQuit(state.ServerId, id))
	}
}

func (r *Relay) reportStatus(ctx context.Context) {
	ticker := time.NewTicker(state.RelayStatusDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.live.DeleteExpired()
			r.mu.Lock()
			joined := len(r.links)
			r.mu.Unlock()
			r.log.Info("relay status", "joined", joined, "routers", r.cfg.Size(), "live", r.Live())
		}
	}
}

func sleepUntil(ctx context.Context, t time.Time) bool {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
