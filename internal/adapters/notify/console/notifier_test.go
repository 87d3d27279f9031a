package console

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierMessages(t *testing.T) {
	var out bytes.Buffer
	n := New(&out, nil)

	n.SignedOut("u-1")
	n.Error("u-2", errors.New("dial tcp: connection refused"))
	n.AccountDisabled("alice@example.com")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Signed out of u-1")
	assert.Contains(t, lines[0], "chatctl login")
	assert.Contains(t, lines[1], "u-2: dial tcp: connection refused")
	assert.Contains(t, lines[2], "alice@example.com is disabled")
}

func TestNotifierSerialisesConcurrentWrites(t *testing.T) {
	var out bytes.Buffer
	n := New(&out, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.SignedOut("u-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(out.String(), "Signed out of u-1"))
}
