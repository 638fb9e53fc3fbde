package frame

const (
	// Marker is the bit that flags the first byte of a frame.
	Marker byte = 0x80

	// PayloadMask selects the six value bits carried by each byte.
	PayloadMask byte = 0x3F

	// MaxValue is the largest value a frame can carry (12 bits).
	MaxValue uint16 = 1<<12 - 1
)

// State is the decoder state carried between chunks: at most one marker
// byte still waiting for its partner.
type State struct {
	pending    byte
	hasPending bool
}

// Pending reports the held marker byte, if any.
func (s State) Pending() (byte, bool) {
	return s.pending, s.hasPending
}

// Empty returns true if no marker byte is held.
func (s State) Empty() bool {
	return !s.hasPending
}

// Decode decodes chunk starting from st and returns the samples together
// with the state to pass to the next call.
func Decode(chunk []byte, st State) ([]uint16, State) {
	return DecodeAppend(make([]uint16, 0, len(chunk)/2+1), chunk, st)
}

// DecodeAppend is like Decode but appends samples to dst.
func DecodeAppend(dst []uint16, chunk []byte, st State) ([]uint16, State) {
	i := 0
	if st.hasPending {
		if len(chunk) == 0 {
			return dst, st
		}
		dst = append(dst, combine(st.pending, chunk[0]))
		st = State{}
		i = 1
	}

	for i < len(chunk) {
		b := chunk[i]
		if b&Marker == 0 {
			// resync: skip unmarked filler
			i++
			continue
		}
		if i+1 == len(chunk) {
			return dst, State{pending: b, hasPending: true}
		}
		dst = append(dst, combine(b, chunk[i+1]))
		i += 2
	}
	return dst, st
}

func combine(b1, b2 byte) uint16 {
	return uint16(b2&PayloadMask)<<6 | uint16(b1&PayloadMask)
}

// Encode returns the wire form of v. Bits above MaxValue are discarded.
func Encode(v uint16) [2]byte {
	return [2]byte{
		Marker | byte(v)&PayloadMask,
		byte(v>>6) & PayloadMask,
	}
}

// AppendEncoded appends the wire form of every value in vs to dst.
func AppendEncoded(dst []byte, vs ...uint16) []byte {
	for _, v := range vs {
		f := Encode(v)
		dst = append(dst, f[0], f[1])
	}
	return dst
}

// Decoder is a stateful wrapper around DecodeAppend for a single stream.
// It is not safe for concurrent use.
type Decoder struct {
	state State
	buf   []uint16
}

// Decode decodes chunk and returns the samples it completed. The returned
// slice is only valid until the next call.
func (d *Decoder) Decode(chunk []byte) []uint16 {
	d.buf, d.state = DecodeAppend(d.buf[:0], chunk, d.state)
	return d.buf
}

// Pending returns true if a marker byte is waiting for its partner.
func (d *Decoder) Pending() bool {
	return d.state.hasPending
}

// State returns the current carry-over state.
func (d *Decoder) State() State {
	return d.state
}

// Reset drops any held marker byte.
func (d *Decoder) Reset() {
	d.state = State{}
}
