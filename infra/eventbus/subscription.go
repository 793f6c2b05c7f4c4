package eventbus

import (
	"sync"

	"github.com/amirasaad/payflow/pkg/domain/events"
)

// maxConsecutiveReadErrors is how many failed broker reads end a subscription.
const maxConsecutiveReadErrors = 5

// brokerSubscription is the consumer side shared by broker-backed channels.
// The consume loop owns out and ends it through finish exactly once.
type brokerSubscription struct {
	out  chan events.Message
	once sync.Once
	mu   sync.RWMutex
	err  error
}

func newBrokerSubscription(buffer int) *brokerSubscription {
	if buffer < 1 {
		buffer = DefaultBufferSize
	}
	return &brokerSubscription{out: make(chan events.Message, buffer)}
}

func (s *brokerSubscription) Messages() <-chan events.Message {
	return s.out
}

func (s *brokerSubscription) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *brokerSubscription) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.out)
	})
}
