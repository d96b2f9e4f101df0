// Package bitio implements the bit-level reader/writer primitives needed to
// parse and emit H.264 RBSP syntax: MSB-first bit packing, exponential-Golomb
// coding, and Annex B emulation-prevention byte insertion/removal.
//
// The buffer-offset bookkeeping is an offset int over a []byte, bounds-checked
// before every byte read or written, generalized from whole-byte fields to
// arbitrary bit runs.
package bitio

import "golang.org/x/xerrors"

var (
	ErrBufferTooSmall = xerrors.New("bitio: buffer too small")
	ErrShortRead      = xerrors.New("bitio: short read")
	ErrBitCount       = xerrors.New("bitio: bit count out of range")
)
