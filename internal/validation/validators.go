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

package validation

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tochemey/sharder/errors"
)

// booleanValidator implements Validator.
type booleanValidator struct {
	boolCheck bool
	field     string
	reason    string
}

// NewBooleanValidator creates a validator failing on field when boolCheck is false
func NewBooleanValidator(boolCheck bool, field, reason string) Validator {
	return &booleanValidator{boolCheck: boolCheck, field: field, reason: reason}
}

// Validate returns an error if boolean check is false
func (v booleanValidator) Validate() error {
	if !v.boolCheck {
		return errors.NewConfigurationError(v.field, v.reason)
	}
	return nil
}

// patternValidator checks a value against a regular expression
type patternValidator struct {
	field   string
	value   string
	pattern *regexp.Regexp
}

var _ Validator = (*patternValidator)(nil)

// NewPatternValidator creates a validator failing on field when value does not match pattern
func NewPatternValidator(field, value string, pattern *regexp.Regexp) Validator {
	return &patternValidator{field: field, value: value, pattern: pattern}
}

// Validate executes the validation
func (x *patternValidator) Validate() error {
	if !x.pattern.MatchString(x.value) {
		return errors.NewConfigurationError(x.field, fmt.Sprintf("%q must match %s", x.value, x.pattern))
	}
	return nil
}

// addressValidator checks a host:port address, optionally prefixed by a scheme
type addressValidator struct {
	field   string
	address string
}

var _ Validator = (*addressValidator)(nil)

// NewAddressValidator creates a validator of host:port or scheme://host:port addresses
func NewAddressValidator(field, address string) Validator {
	return &addressValidator{field: field, address: address}
}

// Validate implements validation.Validator.
func (a *addressValidator) Validate() error {
	address := strings.TrimSpace(a.address)
	if strings.Contains(address, "://") {
		parsed, err := url.Parse(address)
		if err != nil {
			return errors.NewConfigurationError(a.field, fmt.Sprintf("invalid address %q: %v", a.address, err))
		}
		address = parsed.Host
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return errors.NewConfigurationError(a.field, fmt.Sprintf("invalid address %q: %v", a.address, err))
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || host == "" || portNum <= 0 || portNum > 65535 {
		return errors.NewConfigurationError(a.field, fmt.Sprintf("invalid address %q", a.address))
	}
	return nil
}
