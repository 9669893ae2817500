package parallel

// ForRows splits [0, height) into contiguous bands and calls fn once per band
// on the pool, returning after every band has been processed (fork-join).
//
// The number of bands is a small multiple of the worker count so that a slow
// band does not leave the other workers idle. With a nil pool fn is called
// once for the whole range on the calling goroutine.
func ForRows(p *WorkerPool, height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if p == nil || p.Workers() == 1 || height == 1 {
		fn(0, height)
		return
	}

	bands := p.Workers() * 4
	if bands > height {
		bands = height
	}
	step := (height + bands - 1) / bands

	tasks := make([]func(), 0, bands)
	for y0 := 0; y0 < height; y0 += step {
		y1 := min(y0+step, height)
		lo, hi := y0, y1
		tasks = append(tasks, func() { fn(lo, hi) })
	}
	p.ExecuteAll(tasks)
}
