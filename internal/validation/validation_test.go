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
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tochemey/sharder/errors"
)

type validationTestSuite struct {
	suite.Suite
}

// In order for 'go test' to run this suite, we need to create
// a normal test function and pass our suite to suite.Run
func TestValidation(t *testing.T) {
	suite.Run(t, new(validationTestSuite))
}

func (s *validationTestSuite) TestNewChain() {
	s.Run("new chain without option", func() {
		chain := New()
		s.Assert().NotNil(chain)
		s.Assert().False(chain.failFast)
	})
	s.Run("new chain with options", func() {
		s.Assert().True(New(FailFast()).failFast)
		s.Assert().False(New(AllErrors()).failFast)
	})
}

func (s *validationTestSuite) TestValidate() {
	s.Run("with a passing chain", func() {
		chain := New().
			AddAssertion(true, "shardsPerCluster", "must be greater than zero").
			AddValidator(NewAddressValidator("redisAddress", "127.0.0.1:6379"))
		s.Assert().NoError(chain.Validate())
	})
	s.Run("with multiple validators and FailFast option", func() {
		chain := New(FailFast()).
			AddAssertion(false, "shardsPerCluster", "must be greater than zero").
			AddAssertion(false, "totalShards", "must be greater than zero")
		err := chain.Validate()
		s.Assert().EqualError(err, "invalid configuration: shardsPerCluster must be greater than zero")
		s.Assert().Nil(chain.violations)
	})
	s.Run("with multiple validators and AllErrors option", func() {
		chain := New(AllErrors()).
			AddAssertion(false, "shardsPerCluster", "must be greater than zero").
			AddAssertion(false, "totalShards", "must be greater than zero")
		err := chain.Validate()
		s.Assert().EqualError(err, "invalid configuration: shardsPerCluster must be greater than zero; invalid configuration: totalShards must be greater than zero")
		s.Assert().ErrorIs(err, errors.ErrConfiguration)
		s.Assert().True(errors.IsConfigurationError(err))

		// validating twice does not accumulate
		s.Assert().EqualError(chain.Validate(), err.Error())
	})
}

func (s *validationTestSuite) TestPatternValidator() {
	identity := regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	s.Assert().NoError(NewPatternValidator("identity", "cluster-0", identity).Validate())

	err := NewPatternValidator("identity", "cluster:0", identity).Validate()
	s.Assert().ErrorIs(err, errors.ErrConfiguration)
	s.Assert().Contains(err.Error(), `"cluster:0"`)
}

func (s *validationTestSuite) TestAddressValidator() {
	valid := []string{"127.0.0.1:6379", "localhost:4222", "nats://localhost:4222", "redis://cache.internal:6380"}
	for _, address := range valid {
		s.Assert().NoError(NewAddressValidator("address", address).Validate(), address)
	}

	invalid := []string{"", "localhost", ":6379", "localhost:port", "localhost:70000", "localhost:0", "nats://"}
	for _, address := range invalid {
		err := NewAddressValidator("address", address).Validate()
		s.Assert().ErrorIs(err, errors.ErrConfiguration, address)
	}
}
