// Package oauth implements fella's desktop OAuth 2.0 login against Google.
//
// A Session drives the authorization code flow: it starts a one-shot
// CallbackListener on an ephemeral loopback port, opens the consent page in
// the system browser, and exchanges the returned code for a Credential
// through the TokenClient. The Credential is persisted by a TokenStore with
// owner-only permissions and renewed on demand by EnsureValidToken.
//
// The UI is expected to call Session.Poll once per tick while a login is
// pending. The listener never blocks the caller: it publishes the captured
// code through an atomic status that Poll reads.
//
//	s := oauth.NewSession(cfg)
//	if err := s.BeginLogin(); err != nil {
//		return err
//	}
//	for s.Poll(ctx) == oauth.StateAwaitingCode {
//		time.Sleep(100 * time.Millisecond)
//	}
//
// Session implements oauth2.TokenSource, so API clients can wrap it in an
// oauth2.Transport.
package oauth
