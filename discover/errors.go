package discover

import "errors"

// ErrSendFailed wraps an error returned by a Sender while issuing a probe.
// The refresh_node call that triggered the probe still completes; the
// contest is simply abandoned since no digest was returned to correlate a
// future Pong against.
var ErrSendFailed = errors.New("discover: probe send failed")

// ErrUnknownDigest is returned by HandlePong for a fresh pong whose
// digest matches no pending probe and that carried no accepted
// unsolicited node. Callers typically log and drop rather than treat this
// as fatal: stray or duplicate Pongs are expected traffic. A stale pong
// never returns this error, matched or not.
var ErrUnknownDigest = errors.New("discover: pong digest matches no pending probe")

// ErrSelf is returned when an operation is attempted against the table's
// own local node ID.
var ErrSelf = errors.New("discover: node ID is the local node")
