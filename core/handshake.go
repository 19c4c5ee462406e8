package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/encodeous/dvr/protocol"
	"github.com/encodeous/dvr/state"
)

// Handshake connects to the relay server and requests our link costs until the server answers with a HELLO
// carrying a cost vector. There is no retry limit, it only gives up when ctx is cancelled or the server sends QUIT.
func Handshake(ctx context.Context, id int, dial Dialer, log *slog.Logger) (Transport, protocol.Packet, error) {
	hello := protocol.NewHello(id, state.ServerId, nil)
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil, protocol.Packet{}, context.Cause(ctx)
		}
		link, err := dial(ctx)
		if err == nil {
			var reply protocol.Packet
			reply, err = exchangeHello(ctx, link, hello, log)
			if err == nil {
				log.Info("handshake complete", "attempt", attempt, "linkcost", reply.Costs())
				return link, reply, nil
			}
			_ = link.Close()
			if errors.Is(err, ErrQuit) {
				return nil, reply, err
			}
		}
		if ctx.Err() != nil {
			return nil, protocol.Packet{}, context.Cause(ctx)
		}
		log.Warn("handshake failed, retrying", "attempt", attempt, "err", err)
		if !sleepCtx(ctx, state.HandshakeRetryDelay) {
			return nil, protocol.Packet{}, context.Cause(ctx)
		}
	}
}

// exchangeHello sends HELLO and waits for the reply on an open link, resending whenever nothing usable arrives in
// time. A reply whose link costs cannot bootstrap us counts as no reply. It returns on success or when the link fails.
func exchangeHello(ctx context.Context, link Transport, hello protocol.Packet, log *slog.Logger) (protocol.Packet, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = link.Close()
	})
	defer stop()

	for {
		err := link.WritePacket(hello)
		if err != nil {
			return protocol.Packet{}, err
		}
		err = link.SetReadDeadline(time.Now().Add(state.HandshakeTimeout))
		if err != nil {
			return protocol.Packet{}, err
		}
		reply, err := link.ReadPacket()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) || errors.Is(err, os.ErrDeadlineExceeded) {
				log.Debug("no hello reply yet", "err", err)
				continue
			}
			return protocol.Packet{}, err
		}
		if reply.Src != state.ServerId {
			log.Debug("ignoring packet during handshake", "pkt", reply)
			continue
		}
		switch msg := reply.Msg.(type) {
		case *protocol.Hello:
			if err = checkLinkCost(hello.Src, msg.Costs); err != nil {
				log.Warn("ignoring unusable hello reply", "pkt", reply, "err", err)
				continue
			}
			return reply, link.SetReadDeadline(time.Time{})
		case *protocol.Quit:
			return reply, ErrQuit
		default:
			log.Debug("ignoring packet during handshake", "pkt", reply)
		}
	}
}
