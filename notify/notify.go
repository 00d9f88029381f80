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

// Package notify delivers operational notices, such as a lost admission
// lock, to an outside sink. Delivery is best effort: failures are logged
// and never reach the caller.
package notify

import (
	"context"
)

// Severity grades a notice
type Severity int

const (
	// Info is a routine notice
	Info Severity = iota
	// Warning is a notice that may require attention
	Warning
	// Error is a notice of a failure
	Error
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// MarshalText encodes the severity as its name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is a notice
type Event struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier sends notices
type Notifier interface {
	// Notify sends the event without waiting for the delivery
	Notify(ctx context.Context, event Event)
	// Close waits for the pending deliveries
	Close() error
}

// NoOp drops every notice
type NoOp struct{}

// enforce compilation error
var _ Notifier = NoOp{}

// Notify does nothing
func (NoOp) Notify(context.Context, Event) {}

// Close does nothing
func (NoOp) Close() error { return nil }
