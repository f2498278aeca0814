package sink

// ring is a fixed-capacity buffer that overwrites its oldest entry
type ring[T any] struct {
	data  []T
	pos   int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{data: make([]T, capacity)}
}

func (r *ring[T]) add(v T) {
	r.data[r.pos] = v
	r.pos = (r.pos + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// items returns the held entries from oldest to newest
func (r *ring[T]) items() []T {
	if r.count == 0 {
		return nil
	}
	out := make([]T, r.count)
	if r.count < len(r.data) {
		copy(out, r.data[:r.count])
	} else {
		n := copy(out, r.data[r.pos:])
		copy(out[n:], r.data[:r.pos])
	}
	return out
}

// Recorder keeps the most recent frames and window reports for chart and
// export consumers
type Recorder struct {
	frames  *ring[FramePoint]
	windows *ring[WindowReport]
}

// NewRecorder creates a recorder holding up to frameCapacity frames and
// windowCapacity window reports
func NewRecorder(frameCapacity, windowCapacity int) *Recorder {
	return &Recorder{
		frames:  newRing[FramePoint](frameCapacity),
		windows: newRing[WindowReport](windowCapacity),
	}
}

func (r *Recorder) WriteFrame(point FramePoint) error {
	r.frames.add(point)
	return nil
}

func (r *Recorder) WriteWindow(report WindowReport) error {
	r.windows.add(report)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Len returns the number of frames currently held
func (r *Recorder) Len() int { return r.frames.count }

// Frames returns the held frames from oldest to newest
func (r *Recorder) Frames() []FramePoint { return r.frames.items() }

// Windows returns the held window reports from oldest to newest
func (r *Recorder) Windows() []WindowReport { return r.windows.items() }
