package session

import (
	"github.com/jrsteele09/go-session-gateway/users"
)

type Status int

const (
	Unauthenticated Status = iota
	Loading
	Authenticated
	Failed
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is one published value of the session signal. User is set only
// when Status is Authenticated. Reason explains the most recent failure
// or forced logout, if any.
type State struct {
	Status Status
	User   *users.User
	Reason error
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

// Listener receives every published state in order.
type Listener func(State)
