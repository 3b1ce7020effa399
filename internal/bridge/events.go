// Package bridge relays identity-provider lifecycle events to the account API.
//
// Registration creates the downstream account; login looks it up and writes
// its id into the issued tokens as a custom claim. Each call is independent
// and performs exactly one downstream request.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExternalID is the identity provider's user id. It decodes from a JSON
// string or number and is always sent downstream in string form.
type ExternalID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ExternalID) UnmarshalJSON(data []byte) error {
	s, err := decodeStringOrNumber(data)
	if err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*id = ExternalID(s)
	return nil
}

func (id ExternalID) String() string {
	return string(id)
}

// decodeStringOrNumber accepts `"abc"` or `123` and returns the text form.
func decodeStringOrNumber(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", data)
	}
	return n.String(), nil
}

// User is the subset of the identity provider's user object the relay reads.
type User struct {
	UserID ExternalID `json:"user_id"`
	Email  string     `json:"email,omitempty"`
}

// RegistrationEvent is delivered after a user registers with the identity provider.
type RegistrationEvent struct {
	User User `json:"user"`
}

// Validate reports a missing user id.
func (e RegistrationEvent) Validate() error {
	return validateUser(e.User)
}

// LoginEvent is delivered after a user authenticates, before tokens are issued.
type LoginEvent struct {
	User User `json:"user"`
}

// Validate reports a missing user id.
func (e LoginEvent) Validate() error {
	return validateUser(e.User)
}

func validateUser(u User) error {
	if strings.TrimSpace(string(u.UserID)) == "" {
		return fmt.Errorf("%w: user.user_id is required", ErrInvalidEvent)
	}
	return nil
}

// Account is the downstream account record. Only its id is used.
type Account struct {
	ID string `json:"id"`
}
