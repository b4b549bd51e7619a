package subscription_test

import (
	"testing"
	"time"

	"github.com/tipvault/tipvault/pkg/subscription"
)

func TestLockSet(t *testing.T) {
	t.Parallel()

	t.Run("serializes holders of the same key", func(t *testing.T) {
		t.Parallel()
		locks := subscription.NewLockSet()
		locks.Lock("sub_1")

		acquired := make(chan struct{})
		go func() {
			locks.Lock("sub_1")
			close(acquired)
			locks.Unlock("sub_1")
		}()

		select {
		case <-acquired:
			t.Fatal("second holder acquired the key while it was held")
		case <-time.After(50 * time.Millisecond):
		}

		locks.Unlock("sub_1")
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second holder never acquired the released key")
		}
	})

	t.Run("distinct keys do not contend", func(t *testing.T) {
		t.Parallel()
		locks := subscription.NewLockSet()
		locks.Lock("sub_1")
		defer locks.Unlock("sub_1")

		done := make(chan struct{})
		go func() {
			locks.Lock("sub_2")
			locks.Unlock("sub_2")
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("unrelated key blocked")
		}
	})
}
