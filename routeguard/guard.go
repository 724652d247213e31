// Package routeguard decides, from the session signal alone, whether a
// protected view may render.
package routeguard

import (
	"sync"

	"github.com/jrsteele09/go-session-gateway/capability"
	"github.com/jrsteele09/go-session-gateway/session"
)

type Decision int

const (
	Render Decision = iota
	Wait
	RedirectLogin
	RedirectForbidden
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	case RedirectForbidden:
		return "redirect-forbidden"
	default:
		return "unknown"
	}
}

// Source is the read-only session signal. *session.Machine implements it.
type Source interface {
	Snapshot() session.State
	Subscribe(l session.Listener) func()
}

var _ Source = (*session.Machine)(nil)

type Guard interface {
	Evaluate(s session.State) Decision
}

type GuardFunc func(s session.State) Decision

func (f GuardFunc) Evaluate(s session.State) Decision {
	return f(s)
}

// Public renders in every state.
func Public() Guard {
	return GuardFunc(func(session.State) Decision { return Render })
}

// Authenticated renders only for a resolved session.
func Authenticated() Guard {
	return GuardFunc(func(s session.State) Decision {
		switch s.Status {
		case session.Authenticated:
			return Render
		case session.Loading:
			return Wait
		default:
			return RedirectLogin
		}
	})
}

// RequireCapability applies Authenticated and then the capability table.
func RequireCapability(resource capability.Resource) Guard {
	auth := Authenticated()
	return GuardFunc(func(s session.State) Decision {
		if d := auth.Evaluate(s); d != Render {
			return d
		}
		if s.User == nil || !capability.CanAccess(s.User.Role, resource) {
			return RedirectForbidden
		}
		return Render
	})
}

// Chain returns the first decision that is not Render.
func Chain(guards ...Guard) Guard {
	return GuardFunc(func(s session.State) Decision {
		for _, g := range guards {
			if d := g.Evaluate(s); d != Render {
				return d
			}
		}
		return Render
	})
}

// Watch evaluates g against the current state and again on every published
// state, calling fn whenever the decision changes. The returned function
// stops watching.
func Watch(src Source, g Guard, fn func(Decision)) func() {
	var (
		lock    sync.Mutex
		last    Decision
		started bool
	)
	emit := func(s session.State) {
		d := g.Evaluate(s)
		lock.Lock()
		if started && d == last {
			lock.Unlock()
			return
		}
		started = true
		last = d
		lock.Unlock()
		fn(d)
	}

	stop := src.Subscribe(emit)
	emit(src.Snapshot())
	return stop
}
