package ticket

// Wait blocks the calling goroutine until t resolves. It is the bridge the
// do_io fast path uses to turn an Object's Ticket-returning methods into a
// plain synchronous call for a process that does not want queue batching.
func Wait[T any](t Ticket[T]) (T, error) {
	done := make(chan struct{})
	if v, err, ready := t.Await(WakerFunc(func() { close(done) })); ready {
		return v, err
	}
	<-done
	v, err, _ := t.Poll()
	return v, err
}
