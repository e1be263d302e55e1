package authflowrepo

import (
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("auth flow state not found")

// AuthFlowState is what the server remembers between redirecting a browser to
// an OAuth provider and receiving the callback.
type AuthFlowState struct {
	ViewerID  string
	Nonce     string
	ReturnURL string
	CreatedAt time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	// Take returns the state and removes it; a state can be redeemed once.
	Take(state string) (*AuthFlowState, error)
}
