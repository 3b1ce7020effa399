package bridge

import (
	"maps"
	"sync"
)

const (
	// ClaimNamespace prefixes every custom claim the relay writes.
	ClaimNamespace = "https://ajanottaja.app/"
	// SubjectClaim carries the downstream account id.
	SubjectClaim = ClaimNamespace + "sub"
)

// TokenTarget names a token being issued for the session.
type TokenTarget string

const (
	AccessToken TokenTarget = "access_token"
	IDToken     TokenTarget = "id_token"
)

// TokenAPI is the token-mutation capability handed to the login bridge.
type TokenAPI interface {
	SetCustomClaim(target TokenTarget, key string, value any)
}

// ClaimSet records claims per token. It is safe for concurrent use.
type ClaimSet struct {
	mu     sync.Mutex
	claims map[TokenTarget]map[string]any
}

// NewClaimSet returns an empty ClaimSet.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{claims: make(map[TokenTarget]map[string]any)}
}

// SetCustomClaim implements TokenAPI.
func (c *ClaimSet) SetCustomClaim(target TokenTarget, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claims[target] == nil {
		c.claims[target] = make(map[string]any)
	}
	c.claims[target][key] = value
}

// Claims returns a copy of the claims set on target. Never nil.
func (c *ClaimSet) Claims(target TokenTarget) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.claims[target]))
	maps.Copy(out, c.claims[target])
	return out
}

// Len returns the total number of claims across all targets.
func (c *ClaimSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.claims {
		n += len(m)
	}
	return n
}
