package socket_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/aretw0/bugjar/pkg/adapters/socket"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/ports/tests"
	"github.com/aretw0/bugjar/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePeer plays the debuggee on the far end of a net.Pipe.
type pipePeer struct {
	conn     net.Conn
	commands chan domain.Command
	answer   bool
}

func newPipePeer(conn net.Conn, answerBootstrap bool) *pipePeer {
	p := &pipePeer{conn: conn, commands: make(chan domain.Command, 16), answer: answerBootstrap}
	go p.read()
	return p
}

func (p *pipePeer) read() {
	scanner := bufio.NewScanner(p.conn)
	for scanner.Scan() {
		cmd, err := wire.DecodeCommand(scanner.Bytes())
		if err != nil {
			continue
		}
		if cmd.Kind == domain.CommandBootstrap {
			if p.answer {
				_, _ = p.conn.Write(append(wire.EncodeHandshake(), '\n'))
			}
			continue
		}
		p.commands <- cmd
	}
}

func (p *pipePeer) Receive(ctx context.Context) (domain.Command, error) {
	select {
	case cmd := <-p.commands:
		return cmd, nil
	case <-ctx.Done():
		return domain.Command{}, ctx.Err()
	}
}

func (p *pipePeer) Emit(ctx context.Context, ev domain.Event) error {
	data, err := wire.EncodeEvent(ev)
	if err != nil {
		return err
	}
	_, err = p.conn.Write(append(data, '\n'))
	return err
}

func newPair(t *testing.T, answerBootstrap bool) (*socket.Connection, *pipePeer) {
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	return socket.New(client), newPipePeer(server, answerBootstrap)
}

func TestSocketConnection_Contract(t *testing.T) {
	tests.RunConnectionContract(t, func(t *testing.T) (ports.Connection, tests.Peer) {
		return newPair(t, true)
	})
}

func TestSocketConnection_BootstrapTimeout(t *testing.T) {
	conn, _ := newPair(t, false)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := conn.Bootstrap(ctx)
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.ConnNotBootstrapped, conn.State())
}

func TestSocketConnection_PeerHangupClosesStream(t *testing.T) {
	client, server := net.Pipe()
	conn := socket.New(client)
	peer := newPipePeer(server, true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Bootstrap(ctx))
	require.NoError(t, peer.Emit(ctx, domain.Info{Message: "last words"}))
	require.NoError(t, server.Close())

	var got []domain.Event
	for ev := range conn.Events() {
		got = append(got, ev)
	}
	assert.Equal(t, []domain.Event{domain.Info{Message: "last words"}}, got)
	assert.Equal(t, domain.ConnClosed, conn.State())
	assert.ErrorIs(t, conn.Send(ctx, domain.NewCommand(domain.CommandRun)), domain.ErrConnectionClosed)
}

func TestSocketConnection_SkipsGarbage(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	conn := socket.New(client)
	defer conn.Close()

	go func() {
		_, _ = server.Write([]byte("hello there\n"))
		_, _ = server.Write([]byte(`{"type":"event","event":"warning","args":{"message":"still here"}}` + "\n"))
	}()

	select {
	case ev := <-conn.Events():
		assert.Equal(t, domain.Warning{Message: "still here"}, ev)
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = socket.Dialer(addr)(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestDial_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := socket.Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	defer server.Close()
	newPipePeer(server, true)

	require.NoError(t, conn.Bootstrap(ctx))
	assert.Equal(t, domain.ConnBootstrapped, conn.State())
}
