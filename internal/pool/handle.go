package pool

import (
	"sync/atomic"
	"weak"

	"github.com/dbpool/mysqlpool/internal/session"
)

// noCopy marks Handle as move-only for go vet's copylocks checker: copying
// a noCopy value trips `go vet -copylocks`, giving the spec's "Handle is
// move-only; it cannot be copied" requirement a compile-time-adjacent
// guard even though Go has no real move semantics.
//
//nolint:unused
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Handle is a scoped borrow of exactly one Session, per spec §4.4. It holds
// a weak back-reference to the Pool it came from so that an outstanding
// Handle never keeps a Pool alive and a Pool's destruction never blocks on
// outstanding Handles (spec §5, §9). Close (or Release) must be called
// exactly once; Handle implements io.Closer so `defer h.Close()` plays the
// role of the spec's scope-exit destructor.
type Handle struct {
	_        noCopy
	pool     weak.Pointer[Pool]
	session  session.Session
	released atomic.Bool
}

func newHandle(p *Pool, s session.Session) *Handle {
	return &Handle{
		pool:    weak.Make(p),
		session: s,
	}
}

// Session returns the borrowed Session. Valid until Close or Release.
func (h *Handle) Session() session.Session {
	return h.session
}

// Close runs the return protocol exactly once: if the owning Pool is still
// alive, the session is handed back (or dropped, if it's no longer
// healthy); if the pool has already been destroyed, the session is
// destroyed locally. Calling Close more than once is a no-op.
func (h *Handle) Close() error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}

	if p := h.pool.Value(); p != nil {
		p.returnSession(h.session)
	} else {
		h.session.Close()
	}
	return nil
}

// Release detaches the Handle without returning the session to the idle
// queue: it destroys the session outright. Used when the application has
// observed the session to be unrecoverable and wants to avoid the extra
// round trip of Close's healthy-return attempt.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}

	if p := h.pool.Value(); p != nil {
		p.dropSession(h.session)
	} else {
		h.session.Close()
	}
}
