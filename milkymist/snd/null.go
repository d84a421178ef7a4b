package snd

// Null is a deterministic backend for tests and headless runs. Nothing
// reaches the host: output bytes are captured in memory, input bytes come
// from a caller-supplied buffer (zeroes once exhausted). Capacity
// callbacks fire only when the caller pumps them, which makes transfer
// sequencing fully scriptable.
type Null struct {
	out *NullOut
	in  *NullIn

	outCapacity func(free int)
	inCapacity  func(avail int)
}

// NewNull creates an unconnected null backend.
func NewNull() *Null {
	return &Null{
		out: &NullOut{},
		in:  &NullIn{},
	}
}

func (n *Null) OpenOut(name string, capacity func(free int)) (OutVoice, error) {
	n.outCapacity = capacity
	return n.out, nil
}

func (n *Null) OpenIn(name string, capacity func(avail int)) (InVoice, error) {
	n.inCapacity = capacity
	return n.in, nil
}

func (n *Null) Close() error {
	return nil
}

// PumpOut delivers one output capacity callback announcing free bytes.
func (n *Null) PumpOut(free int) {
	if n.outCapacity != nil {
		n.outCapacity(free)
	}
}

// PumpIn delivers one input capacity callback announcing available bytes.
func (n *Null) PumpIn(avail int) {
	if n.inCapacity != nil {
		n.inCapacity(avail)
	}
}

// Out returns the output voice for inspection.
func (n *Null) Out() *NullOut { return n.out }

// In returns the input voice for scripting.
func (n *Null) In() *NullIn { return n.in }

// NullOut captures everything written to it.
type NullOut struct {
	active   bool
	captured []byte

	// WriteLimit caps how many bytes a single Write accepts.
	// Zero means unlimited, negative refuses all bytes.
	WriteLimit int
}

func (v *NullOut) SetActive(active bool) {
	v.active = active
}

func (v *NullOut) Write(p []byte) int {
	n := len(p)
	if v.WriteLimit < 0 {
		return 0
	}
	if v.WriteLimit > 0 && n > v.WriteLimit {
		n = v.WriteLimit
	}
	v.captured = append(v.captured, p[:n]...)
	return n
}

// Active reports the last activity state set by the device.
func (v *NullOut) Active() bool { return v.active }

// Captured returns all bytes written so far.
func (v *NullOut) Captured() []byte { return v.captured }

// NullIn supplies bytes from a scripted buffer, then zeroes.
type NullIn struct {
	active bool
	source []byte

	// ReadLimit caps how many bytes a single Read supplies.
	// Zero means unlimited, negative refuses all bytes.
	ReadLimit int
}

func (v *NullIn) SetActive(active bool) {
	v.active = active
}

func (v *NullIn) Read(p []byte) int {
	n := len(p)
	if v.ReadLimit < 0 {
		return 0
	}
	if v.ReadLimit > 0 && n > v.ReadLimit {
		n = v.ReadLimit
	}
	copied := copy(p[:n], v.source)
	v.source = v.source[copied:]
	for i := copied; i < n; i++ {
		p[i] = 0
	}
	return n
}

// Feed appends scripted input data for subsequent reads.
func (v *NullIn) Feed(p []byte) {
	v.source = append(v.source, p...)
}

// Active reports the last activity state set by the device.
func (v *NullIn) Active() bool { return v.active }
