// Package transport moves raw datagrams over UDP without blocking the
// simulation loop.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/llguy/voxsync/pkg/utils"
)

const (
	// Largest UDP payload we will ever receive.
	MaxDatagramSize = 65507

	// Datagrams received but not yet polled before new ones are dropped.
	INCOMING_LIMIT = 1024
)

type Datagram struct {
	Addr *net.UDPAddr
	Data []byte
}

type Socket struct {
	utils.Session

	conn     *net.UDPConn
	incoming chan Datagram
	dropped  atomic.Uint64
}

// Listen binds a UDP socket at address and starts reading from it until ctx
// is done or the socket is closed.
func Listen(ctx context.Context, address string) (*Socket, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	socket := &Socket{
		Session:  utils.NewSession(ctx),
		conn:     conn,
		incoming: make(chan Datagram, INCOMING_LIMIT),
	}

	go socket.read()
	go func() {
		<-socket.Ctx().Done()
		conn.Close()
	}()

	return socket, nil
}

func (s *Socket) read() {
	buffer := make([]byte, MaxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.Cause() != nil {
				return
			}
			log.Debug().Err(err).Msg("failed to read datagram")
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		select {
		case s.incoming <- Datagram{Addr: addr, Data: data}:
		default:
			s.dropped.Add(1)
		}
	}
}

// Poll returns every datagram received since the last call. It never
// blocks.
func (s *Socket) Poll() []Datagram {
	var datagrams []Datagram
	for {
		select {
		case datagram := <-s.incoming:
			datagrams = append(datagrams, datagram)
		default:
			return datagrams
		}
	}
}

// Wait blocks until a datagram arrives or ctx is done.
func (s *Socket) Wait(ctx context.Context) (Datagram, error) {
	select {
	case datagram := <-s.incoming:
		return datagram, nil
	case <-ctx.Done():
		return Datagram{}, ctx.Err()
	case <-s.Ctx().Done():
		return Datagram{}, net.ErrClosed
	}
}

func (s *Socket) Send(addr *net.UDPAddr, data []byte) error {
	if len(data) > MaxDatagramSize {
		return fmt.Errorf("datagram of %d bytes is too large", len(data))
	}
	_, err := s.conn.WriteToUDP(data, addr)
	return err
}

func (s *Socket) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Dropped returns how many datagrams were discarded because Poll was not
// keeping up.
func (s *Socket) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Socket) Close() {
	s.Cancel()
}
