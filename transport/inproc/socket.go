//go:build unix

// File: transport/inproc/socket.go
// Author: momentics <momentics@gmail.com>
//
// In-process socket. Readiness is published through a level-triggered
// self-pipe that is readable exactly while a message can be received.

package inproc

import (
	"bytes"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/internal/netpoll"
	"github.com/momentics/hioload-mq/pool"
)

const maxIdentity = 255

// envelope is one complete message queued on a receiving socket.
type envelope struct {
	frames [][]byte
	from   *socket
}

type socket struct {
	ctx  *Context
	kind api.SocketType
	sig  *netpoll.Signal

	mu     sync.Mutex
	cond   *sync.Cond
	closed bool

	peers []*socket
	rr    int

	out   [][]byte
	inbox []envelope
	cur   *envelope
	idx   int
	more  bool

	replyTo  *socket
	subs     [][]byte
	identity []byte

	sndHWM, rcvHWM int
	linger         time.Duration
}

var _ api.NativeSocket = (*socket)(nil)

func newSocket(c *Context, kind api.SocketType) (*socket, error) {
	sig, err := netpoll.NewSignal()
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	s := &socket{
		ctx:      c,
		kind:     kind,
		sig:      sig,
		identity: id[:],
		sndHWM:   1000,
		rcvHWM:   1000,
		linger:   api.Infinite,
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

func (s *socket) canSend() bool {
	switch s.kind {
	case api.Pull, api.Sub, api.XSub:
		return false
	}
	return true
}

func (s *socket) canRecv() bool {
	switch s.kind {
	case api.Push, api.Pub, api.XPub:
		return false
	}
	return true
}

// needsPeer reports whether a send must wait for a connected peer.
func (s *socket) needsPeer() bool {
	switch s.kind {
	case api.Pair, api.Push, api.Dealer, api.Req:
		return true
	}
	return false
}

func (s *socket) Bind(addr string) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.ctx.bind(s, addr)
}

func (s *socket) Connect(addr string) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.ctx.connect(s, addr)
}

func (s *socket) live() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return syscall.ENOTSOCK
	}
	return nil
}

func (s *socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return syscall.ENOTSOCK
	}
	s.closed = true
	peers := s.peers
	s.peers = nil
	s.inbox = nil
	s.cur = nil
	s.out = nil
	s.replyTo = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, p := range peers {
		p.removePeer(s)
	}
	s.ctx.forget(s)
	return s.sig.Close()
}

func (s *socket) SetOption(opt api.Option, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return syscall.ENOTSOCK
	}
	switch opt {
	case api.Subscribe, api.Unsubscribe:
		if s.kind != api.Sub && s.kind != api.XSub {
			return syscall.EINVAL
		}
		prefix, ok := asBytes(value)
		if !ok {
			return syscall.EINVAL
		}
		if opt == api.Subscribe {
			s.subs = append(s.subs, bytes.Clone(prefix))
			return nil
		}
		if i := slices.IndexFunc(s.subs, func(p []byte) bool { return bytes.Equal(p, prefix) }); i >= 0 {
			s.subs = slices.Delete(s.subs, i, i+1)
		}
		return nil
	case api.Identity:
		id, ok := asBytes(value)
		if !ok || len(id) == 0 || len(id) > maxIdentity {
			return syscall.EINVAL
		}
		s.identity = bytes.Clone(id)
		return nil
	case api.Linger:
		switch v := value.(type) {
		case time.Duration:
			s.linger = v
		default:
			ms, ok := asInt(value)
			if !ok {
				return syscall.EINVAL
			}
			s.linger = time.Duration(ms) * time.Millisecond
		}
		return nil
	case api.SndHWM, api.RcvHWM:
		n, ok := asInt(value)
		if !ok || n < 0 {
			return syscall.EINVAL
		}
		if opt == api.SndHWM {
			s.sndHWM = n
		} else {
			s.rcvHWM = n
		}
		return nil
	}
	return syscall.EINVAL
}

func (s *socket) SendFrame(f api.Frame, flags api.Flags) error {
	if f == nil {
		return syscall.EFAULT
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return syscall.ENOTSOCK
	}
	if !s.canSend() {
		s.mu.Unlock()
		return syscall.ENOTSUP
	}
	if len(s.out) == 0 {
		if s.kind == api.Rep && s.replyTo == nil {
			s.mu.Unlock()
			return syscall.EPROTO
		}
		for s.needsPeer() && len(s.peers) == 0 {
			if flags&api.DontWait != 0 {
				s.mu.Unlock()
				return syscall.EAGAIN
			}
			s.cond.Wait()
			if s.closed {
				s.mu.Unlock()
				return syscall.ENOTSOCK
			}
		}
	}
	s.out = append(s.out, bytes.Clone(f.Bytes()))
	if flags&api.SndMore != 0 {
		s.mu.Unlock()
		return nil
	}

	frames := s.out
	s.out = nil
	targets := s.route()
	s.mu.Unlock()

	s.dispatch(targets, frames)
	return nil
}

// route picks the receivers of the message being completed. Called with
// s.mu held.
func (s *socket) route() []*socket {
	switch s.kind {
	case api.Pub, api.XPub, api.Router:
		return slices.Clone(s.peers)
	case api.Rep:
		to := s.replyTo
		s.replyTo = nil
		if to == nil {
			return nil
		}
		return []*socket{to}
	}
	if len(s.peers) == 0 {
		return nil
	}
	s.rr %= len(s.peers)
	to := s.peers[s.rr]
	s.rr++
	return []*socket{to}
}

func (s *socket) dispatch(targets []*socket, frames [][]byte) {
	if s.kind == api.Router {
		if len(frames) < 2 {
			return
		}
		id := frames[0]
		for _, t := range targets {
			if bytes.Equal(t.identityOf(), id) {
				t.deliver(envelope{frames: frames[1:], from: s})
				return
			}
		}
		return
	}
	for _, t := range targets {
		t.deliver(envelope{frames: frames, from: s})
	}
}

func (s *socket) identityOf() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// deliver queues env on s. Closed sockets and filtered messages drop it.
func (s *socket) deliver(env envelope) {
	var prefix []byte
	if s.kind == api.Router {
		prefix = env.from.identityOf()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.canRecv() {
		return
	}
	if (s.kind == api.Sub || s.kind == api.XSub) && !s.subscribed(env.frames[0]) {
		return
	}
	if prefix != nil {
		env.frames = append([][]byte{prefix}, env.frames...)
	}
	s.inbox = append(s.inbox, env)
	s.sig.Set()
	s.cond.Broadcast()
}

func (s *socket) subscribed(topic []byte) bool {
	for _, p := range s.subs {
		if bytes.HasPrefix(topic, p) {
			return true
		}
	}
	return false
}

func (s *socket) RecvFrame(flags api.Flags) (api.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, syscall.ENOTSOCK
	}
	if !s.canRecv() {
		return nil, syscall.ENOTSUP
	}
	if s.cur == nil {
		for len(s.inbox) == 0 {
			if flags&api.DontWait != 0 {
				return nil, syscall.EAGAIN
			}
			s.cond.Wait()
			if s.closed {
				return nil, syscall.ENOTSOCK
			}
		}
		env := s.inbox[0]
		s.inbox[0] = envelope{}
		s.inbox = s.inbox[1:]
		s.cur, s.idx = &env, 0
		if s.kind == api.Rep {
			s.replyTo = env.from
		}
	}

	data := s.cur.frames[s.idx]
	s.idx++
	s.more = s.idx < len(s.cur.frames)
	if !s.more {
		s.cur = nil
	}
	if s.cur == nil && len(s.inbox) == 0 {
		s.sig.Clear()
	}
	return pool.CopyFrame(data), nil
}

func (s *socket) MorePending() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, syscall.ENOTSOCK
	}
	return s.more, nil
}

func (s *socket) Events() (api.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, syscall.ENOTSOCK
	}
	var ev api.Event
	if s.canRecv() && (s.cur != nil || len(s.inbox) > 0) {
		ev |= api.PollIn
	}
	if s.writable() {
		ev |= api.PollOut
	}
	return ev, nil
}

// writable is called with s.mu held.
func (s *socket) writable() bool {
	if !s.canSend() {
		return false
	}
	switch {
	case len(s.out) > 0:
		return true
	case s.kind == api.Rep:
		return s.replyTo != nil
	case s.needsPeer():
		return len(s.peers) > 0
	}
	return true
}

func (s *socket) Fd() (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, syscall.ENOTSOCK
	}
	return s.sig.Fd(), nil
}

// addPeer links p and wakes senders blocked for lack of a peer.
func (s *socket) addPeer(p *socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !slices.Contains(s.peers, p) {
		s.peers = append(s.peers, p)
	}
	s.cond.Broadcast()
	return true
}

func (s *socket) removePeer(p *socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.peers, p); i >= 0 {
		s.peers = slices.Delete(s.peers, i, i+1)
	}
	if s.replyTo == p {
		s.replyTo = nil
	}
}

func asBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	return nil, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}
