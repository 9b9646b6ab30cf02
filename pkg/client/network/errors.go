package network

import "errors"

// ErrConnectionClosedByServer is returned when the relay closes the connection
var ErrConnectionClosedByServer = errors.New("connection closed by server")

// ErrNotConnected is returned when sending before the connection is established
var ErrNotConnected = errors.New("not connected")

// ErrWelcomeTimeout is returned when the relay does not welcome the peer in time
var ErrWelcomeTimeout = errors.New("timed out waiting for welcome")

// ErrMembershipDropped is returned when a membership change could not be
// queued for the coordinator. The connection is closed so the peer rejoins
// with a fresh welcome instead of running on a stale membership.
var ErrMembershipDropped = errors.New("membership change dropped")
