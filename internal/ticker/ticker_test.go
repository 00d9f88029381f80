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

package ticker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTicker(t *testing.T) {
	ticker := New(10 * time.Millisecond)
	assert.False(t, ticker.Ticking())

	ticker.Start()
	ticker.Start()
	assert.True(t, ticker.Ticking())

	select {
	case <-ticker.Ticks():
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}

	ticker.Stop()
	ticker.Stop()
	assert.False(t, ticker.Ticking())

	select {
	case <-ticker.Ticks():
		t.Fatal("tick delivered after stop")
	case <-time.After(50 * time.Millisecond):
	}

	// restartable
	ticker.Start()
	select {
	case <-ticker.Ticks():
	case <-time.After(time.Second):
		t.Fatal("no tick delivered after restart")
	}
	ticker.Stop()
}

func TestNewPanicsOnInvalidInterval(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}
