// Package identity contains the identity-linking logic: deciding which
// customer an OAuth callback belongs to and merging provider tokens onto
// customer records without clobbering unrelated providers.
package identity

import "github.com/dropDatabas3/tokenbridge/internal/session"

// AuthKind tags the authentication state of a request.
type AuthKind int

const (
	// Anonymous: no usable identity signal in the session.
	Anonymous AuthKind = iota
	// GoogleSession: a fully authenticated Google-OAuth session.
	GoogleSession
	// BasicSession: a basic-auth session with a known email.
	BasicSession
)

// AuthContext is the explicit tagged union of the request's authentication
// signals, computed once per request from the session. It replaces scattered
// ad hoc "is this user authenticated" checks.
type AuthContext struct {
	Kind AuthKind

	// CustomerID is set for GoogleSession.
	CustomerID string

	// Email/Name are set for BasicSession.
	Email string
	Name  string

	// LinkCustomerID is the session-stored customer id recorded when an
	// authenticated user initiated a secondary linking flow.
	LinkCustomerID string

	// TempLinkID is the session-stored temporary id recorded when a fully
	// anonymous user began a standalone QuickBooks-only flow.
	TempLinkID string
}

// FromSession computes the AuthContext for the request's session.
func FromSession(s *session.Session) AuthContext {
	ac := AuthContext{
		Kind:           Anonymous,
		LinkCustomerID: s.LinkCustomerID,
		TempLinkID:     s.TempLinkID,
	}
	if !s.Authenticated {
		return ac
	}
	switch s.AuthType {
	case session.AuthTypeGoogle:
		if s.CustomerID != "" {
			ac.Kind = GoogleSession
			ac.CustomerID = s.CustomerID
		}
	case session.AuthTypeBasic:
		if s.Email != "" {
			ac.Kind = BasicSession
			ac.Email = s.Email
			ac.Name = s.Name
		}
	}
	return ac
}
