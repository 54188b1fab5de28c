package livefeed

import "sync"

// Dispatcher routes channel events to registered callbacks. Each event kind
// has a single handler; registering again replaces it.
type Dispatcher struct {
	mu            sync.RWMutex
	onMessage     func(Post)
	onStateChange func(StateEvent)
	onError       func(error)
}

func (d *Dispatcher) SetOnMessage(fn func(Post)) {
	d.mu.Lock()
	d.onMessage = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnStateChange(fn func(StateEvent)) {
	d.mu.Lock()
	d.onStateChange = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// DispatchFrame decodes a raw frame and hands the Post to the message
// handler. Undecodable frames go to the error handler and are dropped.
func (d *Dispatcher) DispatchFrame(codec *Codec, frame []byte) error {
	post, err := codec.Decode(frame)
	if err != nil {
		d.fireError(err)
		return err
	}
	d.mu.RLock()
	fn := d.onMessage
	d.mu.RUnlock()
	if fn != nil {
		fn(post)
	}
	return nil
}

func (d *Dispatcher) dispatchState(ev StateEvent) {
	d.mu.RLock()
	fn := d.onStateChange
	d.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (d *Dispatcher) fireError(err error) {
	d.mu.RLock()
	fn := d.onError
	d.mu.RUnlock()
	if fn != nil && err != nil {
		fn(err)
	}
}
