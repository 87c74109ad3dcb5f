package worker

// sweepOperations handles removing finished jobs from the registry.
func (w *Worker) sweepOperations() {
	w.evHandler("worker: sweepOperations: G started")
	defer w.evHandler("worker: sweepOperations: G completed")

	for {
		select {
		case <-w.sweepTicker.C:
			if !w.isShutdown() {
				w.state.Sweep()
			}
		case <-w.shut:
			w.evHandler("worker: sweepOperations: received shut signal")
			return
		}
	}
}
