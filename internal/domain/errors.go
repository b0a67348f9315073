package domain

import "fmt"

// FetchErrorKind classifies source fetch failures. All kinds are transient
// from the scheduler's point of view; Malformed additionally signals a
// probable upstream schema change and is logged louder.
type FetchErrorKind string

const (
	FetchNetwork   FetchErrorKind = "network"
	FetchProtocol  FetchErrorKind = "protocol"
	FetchMalformed FetchErrorKind = "malformed"
)

// FetchError wraps a failure to retrieve or parse one telemetry source.
type FetchError struct {
	Kind   FetchErrorKind
	Source SourceKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a classified fetch error.
func NewFetchError(kind FetchErrorKind, source SourceKind, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Err: err}
}

// DispatchErrorKind classifies notification channel failures.
type DispatchErrorKind string

const (
	DispatchChannelUnavailable DispatchErrorKind = "channel_unavailable"
	DispatchRejected           DispatchErrorKind = "rejected"
	DispatchTimeout            DispatchErrorKind = "timeout"
)

// DispatchError wraps a failed delivery attempt on one channel. Retried a
// bounded number of times, then dropped with a logged failure; never fatal.
type DispatchError struct {
	Kind    DispatchErrorKind
	Channel string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch via %s: %s: %v", e.Channel, e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewDispatchError builds a classified dispatch error.
func NewDispatchError(kind DispatchErrorKind, channel string, err error) *DispatchError {
	return &DispatchError{Kind: kind, Channel: channel, Err: err}
}
