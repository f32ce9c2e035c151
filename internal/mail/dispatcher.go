package mail

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultWorkerTimeout = 30 * time.Second

// ErrFunc receives failures from background sends.
type ErrFunc func(msg VerificationMessage, err error)

// Dispatcher sends each message on its own goroutine with a context that is
// detached from the caller and bounded by the worker timeout.
type Dispatcher struct {
	mailer     Mailer
	timeout    time.Duration
	errHandler ErrFunc
	wg         sync.WaitGroup
}

func NewDispatcher(mailer Mailer, timeout time.Duration, errHandler ErrFunc) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultWorkerTimeout
	}
	if errHandler == nil {
		errHandler = func(VerificationMessage, error) {}
	}

	return &Dispatcher{
		mailer:     mailer,
		timeout:    timeout,
		errHandler: errHandler,
	}
}

// Enqueue returns immediately. Delivery errors and panics go to the error
// handler.
func (d *Dispatcher) Enqueue(msg VerificationMessage) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.errHandler(msg, fmt.Errorf("mailer panic: %v", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.mailer.SendVerification(ctx, msg); err != nil {
			d.errHandler(msg, fmt.Errorf("send verification email: %w", err))
		}
	}()
}

// Wait blocks until every enqueued send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
