package frame

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestDecode_ConcreteScenario(t *testing.T) {
	got, st := Decode([]byte{0x85, 0x02, 0x10, 0x41, 0x01}, State{})

	want := []uint16{133, 65}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode() = %v, want %v", got, want)
	}
	if !st.Empty() {
		t.Fatalf("expected no leftover byte, got %+v", st)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		chunk       []byte
		want        []uint16
		wantPending bool
	}{
		{"empty", nil, []uint16{}, false},
		{"only noise", []byte{0x01, 0x7F, 0x00}, []uint16{}, false},
		{"single frame", []byte{0xBF, 0x3F}, []uint16{4095}, false},
		{"zero value", []byte{0x80, 0x00}, []uint16{0}, false},
		{"partner high bit ignored", []byte{0x81, 0xC1}, []uint16{65}, false},
		{"leading noise", []byte{0x12, 0x34, 0x85, 0x02}, []uint16{133}, false},
		{"trailing marker held", []byte{0x85, 0x02, 0x90}, []uint16{133}, true},
		{"lone marker", []byte{0x90}, []uint16{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, st := Decode(tt.chunk, State{})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %v, want %v", got, tt.want)
			}
			if st.Empty() == tt.wantPending {
				t.Errorf("pending = %v, want %v", !st.Empty(), tt.wantPending)
			}
		})
	}
}

func TestDecode_CarriesMarkerAcrossChunks(t *testing.T) {
	first, st := Decode([]byte{0x41, 0x85}, State{})
	if len(first) != 0 {
		t.Fatalf("first chunk samples = %v, want none", first)
	}
	if b, ok := st.Pending(); !ok || b != 0x85 {
		t.Fatalf("pending = %#x,%v want 0x85,true", b, ok)
	}

	// An empty chunk must not lose the held byte.
	none, st := Decode(nil, st)
	if len(none) != 0 || st.Empty() {
		t.Fatalf("empty chunk changed state: samples=%v state=%+v", none, st)
	}

	second, st := Decode([]byte{0x02}, st)
	if !reflect.DeepEqual(second, []uint16{133}) {
		t.Fatalf("second chunk samples = %v, want [133]", second)
	}
	if !st.Empty() {
		t.Fatalf("expected empty state after pairing")
	}
}

func TestDecode_SplitEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		stream := make([]byte, rng.Intn(64))
		rng.Read(stream)

		whole, wholeState := Decode(stream, State{})

		for cut := 0; cut <= len(stream); cut++ {
			a, st := Decode(stream[:cut], State{})
			b, st := Decode(stream[cut:], st)
			split := append(a, b...)

			if !reflect.DeepEqual(split, whole) {
				t.Fatalf("stream %x cut %d: split=%v whole=%v", stream, cut, split, whole)
			}
			if st != wholeState {
				t.Fatalf("stream %x cut %d: state %+v, want %+v", stream, cut, st, wholeState)
			}
		}
	}
}

func TestDecode_NeverEmitsUnpairedMarker(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 500; iter++ {
		stream := make([]byte, rng.Intn(32))
		rng.Read(stream)

		got, st := Decode(stream, State{})

		// Count complete frames by walking the same grammar.
		frames := 0
		for i := 0; i < len(stream); {
			if stream[i]&Marker == 0 {
				i++
				continue
			}
			if i+1 < len(stream) {
				frames++
			}
			i += 2
		}
		if len(got) != frames {
			t.Fatalf("stream %x: %d samples, want %d complete frames", stream, len(got), frames)
		}
		for _, v := range got {
			if v > MaxValue {
				t.Fatalf("sample %d exceeds 12 bits", v)
			}
		}
		_ = st
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	for v := uint16(0); v <= MaxValue; v++ {
		wire := AppendEncoded(nil, v)
		got, st := Decode(wire, State{})
		if len(got) != 1 || got[0] != v || !st.Empty() {
			t.Fatalf("value %d: decoded %v state %+v", v, got, st)
		}
	}
}

func TestDecoder_Stateful(t *testing.T) {
	var d Decoder
	wire := AppendEncoded(nil, 1, 2, 3)

	var got []uint16
	for _, b := range wire {
		got = append(got, d.Decode([]byte{b})...)
	}
	if !reflect.DeepEqual(got, []uint16{1, 2, 3}) {
		t.Fatalf("byte-at-a-time decode = %v", got)
	}
	if d.Pending() {
		t.Fatal("decoder should not hold a byte")
	}

	d.Decode([]byte{0x81})
	if !d.Pending() {
		t.Fatal("decoder should hold the trailing marker")
	}
	d.Reset()
	if d.Pending() {
		t.Fatal("Reset should drop the held marker")
	}
}
