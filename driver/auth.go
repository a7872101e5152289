package driver

import (
	"encoding/base64"

	"github.com/matst80/gremlink/graphson"
)

// Authenticator answers server authentication challenges. Evidence returns
// the argument map for the authentication op replayed under the challenged
// request's id; the challenge payload semantics stay between the
// authenticator and the server.
type Authenticator interface {
	Evidence(challenge *graphson.ResponseMessage) (map[string]any, error)
}

// PlainTextAuthenticator implements SASL PLAIN: a single base64 response
// carrying NUL-separated username and password. Only use over TLS.
type PlainTextAuthenticator struct {
	Username string
	Password string
}

func (a *PlainTextAuthenticator) Evidence(*graphson.ResponseMessage) (map[string]any, error) {
	identity := "\x00" + a.Username + "\x00" + a.Password
	return map[string]any{
		graphson.ArgSasl: base64.StdEncoding.EncodeToString([]byte(identity)),
	}, nil
}
