// Package frame decodes the two-byte sample framing used by the acquisition
// board.
//
// Every sample travels as exactly two bytes. The first byte of a frame has
// its high bit (0x80) set and carries the low six bits of the value; the
// byte that follows carries the next six bits. The high bit of the second
// byte is ignored:
//
//	value = ((b2 & 0x3F) << 6) | (b1 & 0x3F)
//
// Bytes without the marker bit that do not directly follow a marker are
// noise and are skipped one at a time until the next marker, so the decoder
// resynchronizes on its own after a dropped or corrupted byte.
//
// # Chunk boundaries
//
// A marker byte that arrives as the last byte of a chunk is kept in [State]
// and paired with the first byte of the next chunk. Decoding a stream in one
// call or split at any boundary yields the same samples.
//
// # Usage
//
//	var d frame.Decoder
//	for chunk := range chunks {
//	    for _, v := range d.Decode(chunk) {
//	        ...
//	    }
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package frame
