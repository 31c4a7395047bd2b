package server

import (
	"net"
	"sync"
	"time"
)

// udpSession is one UDP transfer: the peer that asked, what it asked for and
// how long the server keeps sending.
type udpSession struct {
	key      string
	peer     *net.UDPAddr
	fileSize uint64
	total    uint64
	started  time.Time
	deadline time.Time
}

// sessionTable tracks active UDP sessions by peer address. A peer has at most
// one active session; repeated requests while it runs are dropped.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*udpSession
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*udpSession)}
}

func (t *sessionTable) open(peer *net.UDPAddr, fileSize, total uint64, timeout time.Duration) (*udpSession, bool) {
	key := peer.String()
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.sessions[key]; ok && now.Before(existing.deadline) {
		return nil, false
	}
	s := &udpSession{
		key:      key,
		peer:     peer,
		fileSize: fileSize,
		total:    total,
		started:  now,
		deadline: now.Add(timeout),
	}
	t.sessions[key] = s
	return s, true
}

func (t *sessionTable) close(s *udpSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.sessions[s.key]; ok && current == s {
		delete(t.sessions, s.key)
	}
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
