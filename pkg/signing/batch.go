package signing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Failure records a batch element that could not be signed.
type Failure[I any] struct {
	Index int
	Input I
	Err   error
}

// BatchResult is the outcome of SignBatch. Signed and Succeeded are
// parallel: Signed[i] is the request built from Succeeded[i]. Both keep
// the caller's order.
type BatchResult[I any, P any] struct {
	Signed    []P
	Succeeded []I
	Failed    []Failure[I]
}

// Err returns a *BatchError describing every failed element, or nil when
// all elements were signed.
func (r *BatchResult[I, P]) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	be := &BatchError{Total: len(r.Signed) + len(r.Failed)}
	for _, f := range r.Failed {
		be.Failures = append(be.Failures, ElementError{
			Index: f.Index,
			Input: fmt.Sprint(f.Input),
			Err:   f.Err,
		})
	}
	return be
}

// ElementError is one failed element of a batch.
type ElementError struct {
	Index int
	Input string
	Err   error
}

// BatchError reports the elements of a batch that failed to sign.
type BatchError struct {
	Total    int
	Failures []ElementError
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d batch elements failed to sign", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; [%d] %s: %v", f.Index, f.Input, f.Err)
	}
	return b.String()
}

// Unwrap exposes the element errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Builder constructs the unsigned request for one batch element. ts is the
// element's own timestamp in milliseconds.
type Builder[I any, T any] func(input I, ts uint64) (*T, error)

// SignBatch builds and signs one request per input. Each element gets a
// fresh timestamp from clock (time.Now when nil) and is signed
// independently; failures are collected rather than dropped.
func SignBatch[I any, T any, P Signable[T]](inputs []I, build Builder[I, T], signer Signer, clock func() time.Time) *BatchResult[I, P] {
	if clock == nil {
		clock = time.Now
	}
	res := &BatchResult[I, P]{}
	for i, in := range inputs {
		msg, err := build(in, Timestamp(clock()))
		if err == nil && msg == nil {
			err = errors.New("builder returned no request")
		}
		if err == nil {
			err = Apply[T, P](P(msg), signer)
		}
		if err != nil {
			res.Failed = append(res.Failed, Failure[I]{Index: i, Input: in, Err: err})
			continue
		}
		res.Signed = append(res.Signed, P(msg))
		res.Succeeded = append(res.Succeeded, in)
	}
	return res
}
