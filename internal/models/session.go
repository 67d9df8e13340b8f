package models

import "context"

// Session is the authenticated caller of a request. It travels in the
// request context rather than in process-wide state.
type Session struct {
	AccountNo string `json:"account_no"`
	Role      Role   `json:"role"`
	TokenID   string `json:"-"`
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.AccountNo != ""
}
