package bridge

import (
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("bridge pool is closed")

// Reply is the message a finished shell task sends back to its submitter.
type Reply struct {
	Serial  string
	Command string
	Result  Result
	Err     error
}

type task struct {
	ctx     context.Context
	command string
	reply   chan Reply
}

// Pool offloads shell calls from the control goroutine. Each device serial
// gets its own lane, so commands for one device run strictly in submission
// order while different devices proceed in parallel.
type Pool struct {
	transport Transport

	mu     sync.Mutex
	lanes  map[string]chan task
	closed bool
	wg     sync.WaitGroup
}

func NewPool(t Transport) *Pool {
	return &Pool{transport: t, lanes: make(map[string]chan task)}
}

// Submit queues a command for serial. The returned channel always receives
// exactly one Reply.
func (p *Pool) Submit(ctx context.Context, serial, command string) <-chan Reply {
	reply := make(chan Reply, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		reply <- Reply{Serial: serial, Command: command, Err: ErrPoolClosed}
		return reply
	}
	lane, ok := p.lanes[serial]
	if !ok {
		lane = make(chan task, 64)
		p.lanes[serial] = lane
		p.wg.Add(1)
		go p.drain(serial, lane)
	}
	// Sending under the lock keeps Close from closing the lane mid-send.
	lane <- task{ctx: ctx, command: command, reply: reply}
	p.mu.Unlock()
	return reply
}

func (p *Pool) drain(serial string, lane <-chan task) {
	defer p.wg.Done()
	for t := range lane {
		if err := t.ctx.Err(); err != nil {
			t.reply <- Reply{Serial: serial, Command: t.command, Err: err}
			continue
		}
		res, err := p.transport.Shell(t.ctx, serial, t.command)
		t.reply <- Reply{Serial: serial, Command: t.command, Result: res, Err: err}
	}
}

// Shell submits and waits, so a Pool can stand in for its Transport.
func (p *Pool) Shell(ctx context.Context, serial, command string) (Result, error) {
	r := <-p.Submit(ctx, serial, command)
	return r.Result, r.Err
}

func (p *Pool) Devices(ctx context.Context) ([]Entry, error) {
	return p.transport.Devices(ctx)
}

func (p *Pool) Reboot(ctx context.Context, serial string) error {
	return p.transport.Reboot(ctx, serial)
}

// Close stops accepting work and waits for queued commands to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for serial, lane := range p.lanes {
		close(lane)
		delete(p.lanes, serial)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
