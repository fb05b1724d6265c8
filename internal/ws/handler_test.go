package ws

import (
	"sync"
	"testing"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, sendBufferSize)}
}

func TestSendAfterCloseReturnsError(t *testing.T) {
	c := newTestClient()
	if err := c.Send([]byte{0x15}); err != nil {
		t.Fatalf("Send before close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The match actor drops a seat while the read pump may still be
	// echoing pongs through it; a late Send must fail, not panic.
	if err := c.Send([]byte{0x15}); err != errClientClosed {
		t.Errorf("Send after close = %v, want errClientClosed", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newTestClient()
	c.Close()
	if err := c.Close(); err != nil {
		t.Errorf("Second close: %v", err)
	}
}

func TestConcurrentSendAndClose(t *testing.T) {
	for i := 0; i < 100; i++ {
		c := newTestClient()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Send([]byte{0x15})
			}
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
		wg.Wait()
	}
}

func TestSendRejectsWhenBufferFull(t *testing.T) {
	c := &Client{send: make(chan []byte, 1)}
	if err := c.Send([]byte{0x11}); err != nil {
		t.Fatalf("First send: %v", err)
	}
	if err := c.Send([]byte{0x11}); err != errSlowClient {
		t.Errorf("Send into full buffer = %v, want errSlowClient", err)
	}
}
