package domain

import "time"

// AuthAction identifies the kind of authentication event being recorded.
type AuthAction string

const (
	ActionRegistered      AuthAction = "registered"
	ActionLoginSucceeded  AuthAction = "login_succeeded"
	ActionLoginFailed     AuthAction = "login_failed"
	ActionLoginThrottled  AuthAction = "login_throttled"
	ActionLoggedOut       AuthAction = "logged_out"
	ActionTokenRefreshed  AuthAction = "token_refreshed"
	ActionRefreshRejected AuthAction = "refresh_rejected"
)

// AuthEvent is an audit-trail entry describing an authentication outcome.
// Subject is the user ID when known, otherwise the normalized email the
// caller presented.
type AuthEvent struct {
	Subject   string
	Email     string
	Action    AuthAction
	Reason    string
	Timestamp time.Time
}
