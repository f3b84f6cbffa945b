// Package provider holds what the speech, chat and synthesis clients share:
// the error type every collaborator failure is reported as.
package provider

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
)

// Error is a failed call to an external service. Status and Body are set
// when the service answered with a non-success HTTP response.
type Error struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v: %s", e.Service, e.Status, e.Err, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap turns an SDK error into an *Error for service, lifting the HTTP
// status and raw body out of OpenAI and Google API errors.
func Wrap(service string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}

	e := &Error{Service: service, Err: err}
	var oe *openai.Error
	var ge *googleapi.Error
	switch {
	case errors.As(err, &oe):
		e.Status = oe.StatusCode
		e.Body = oe.RawJSON()
	case errors.As(err, &ge):
		e.Status = ge.Code
		e.Body = ge.Body
	}
	return e
}

// Violation reports a response that parsed but broke the service contract.
func Violation(service, format string, args ...any) error {
	return &Error{Service: service, Err: fmt.Errorf(format, args...)}
}
