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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError(t *testing.T) {
	t.Run("With field", func(t *testing.T) {
		err := NewConfigurationError("shardsPerCluster", "must be greater than zero")
		assert.EqualError(t, err, "invalid configuration: shardsPerCluster must be greater than zero")
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.True(t, IsConfigurationError(err))
	})
	t.Run("Without field", func(t *testing.T) {
		err := NewConfigurationError("", "no shared secret configured")
		assert.EqualError(t, err, "invalid configuration: no shared secret configured")
	})
	t.Run("When wrapped", func(t *testing.T) {
		err := fmt.Errorf("queue: %w", NewConfigurationError("totalShards", "must be greater than zero"))
		require.True(t, IsConfigurationError(err))

		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "totalShards", cfgErr.Field)
	})
	t.Run("With other errors", func(t *testing.T) {
		assert.False(t, IsConfigurationError(ErrLockLost))
		assert.False(t, errors.Is(NewConfigurationError("a", "b"), ErrLockLost))
	})
}
