package core

import (
	"errors"
	"fmt"
)

// FailureKind classifies how a generation stage failed. The kinds matter to
// callers: validation failures are never retried, transport failures point at
// the network, contract failures point at a misbehaving backend, and resource
// failures are local.
type FailureKind int

const (
	// ValidationFailure is bad or missing input caught before any remote call.
	ValidationFailure FailureKind = iota + 1
	// TransportFailure is a network or timeout error reaching a remote service.
	TransportFailure
	// RemoteContractFailure is a successful remote call that returned an
	// unusable or empty payload.
	RemoteContractFailure
	// ResourceFailure is a local resource allocation or validation error.
	ResourceFailure
)

func (k FailureKind) String() string {
	switch k {
	case ValidationFailure:
		return "validation"
	case TransportFailure:
		return "transport"
	case RemoteContractFailure:
		return "remote_contract"
	case ResourceFailure:
		return "resource"
	default:
		return "unknown"
	}
}

// Failure is a classified generation error. Status and Detail carry the
// remote side's response when one exists.
type Failure struct {
	Kind    FailureKind
	Message string
	Status  int    // HTTP status from the remote, when applicable.
	Detail  string // Remote error detail, when applicable.
	Err     error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func NewValidationFailure(message string) *Failure {
	return &Failure{Kind: ValidationFailure, Message: message}
}

func NewTransportFailure(message string, err error) *Failure {
	return &Failure{Kind: TransportFailure, Message: message, Err: err}
}

func NewRemoteContractFailure(message string) *Failure {
	return &Failure{Kind: RemoteContractFailure, Message: message}
}

func NewRemoteFailure(message string, status int, detail string) *Failure {
	return &Failure{Kind: TransportFailure, Message: message, Status: status, Detail: detail}
}

func NewResourceFailure(message string, err error) *Failure {
	return &Failure{Kind: ResourceFailure, Message: message, Err: err}
}

// KindOf extracts the FailureKind from an error chain, or 0 when the error is
// not a classified Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
