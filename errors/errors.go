// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the sentinel every ConfigurationError matches through errors.Is.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrLockServiceUnavailable is returned when the lock medium cannot be reached
	// after its own retry policy has been exhausted. Contention never produces it.
	ErrLockServiceUnavailable = errors.New("lock service unavailable")

	// ErrLockLost is returned when a lock handle expired before it could be
	// extended or released. Another process may now own the key.
	ErrLockLost = errors.New("lock lost")

	// ErrRequestTimeout marks a broadcast request that completed with partial or no responses.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrTransportClosed is returned when publishing or subscribing on a closed transport.
	ErrTransportClosed = errors.New("transport is closed")

	// ErrCoordinatorNotStarted is returned when the coordinator is used before Start.
	ErrCoordinatorNotStarted = errors.New("coordinator is not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("coordinator is already started")

	// ErrInvalidTimeout is returned when a timeout value is less than or equal to zero.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// ConfigurationError describes an invalid setup. It is fatal and
// raised at construction time.
type ConfigurationError struct {
	Field  string
	Reason string
}

// enforce compilation error
var _ error = (*ConfigurationError)(nil)

// NewConfigurationError creates an instance of ConfigurationError
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
