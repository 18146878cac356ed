package ir

import "github.com/open-vela/ts2wasm/internal/bitpack"

// StringPool interns every string literal and identifier name the compiler
// needs to place in the data segment (string constants, member names used
// by `any`'s dynamic-dispatch fallback, interface member names) and hands
// back a stable index. Freeze and Bytes lay the backing bytes out here:
// each string is preceded by its 4-byte little-endian length, with no
// NUL terminator.
type StringPool struct {
	strings []string
	index   map[string]uint32
	offsets []uint64 // byte offset of each string within the pool's flattened buffer, finalized by Freeze.
	frozen  bitpack.OffsetArray
}

// NewStringPool returns an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]uint32)}
}

// Intern returns the stable index for s, adding it to the pool on first
// use.
func (p *StringPool) Intern(s string) uint32 {
	if idx, ok := p.index[s]; ok {
		return idx
	}
	idx := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.index[s] = idx
	return idx
}

// String returns the interned string at idx.
func (p *StringPool) String(idx uint32) string {
	return p.strings[idx]
}

// Len returns the number of distinct interned strings.
func (p *StringPool) Len() int { return len(p.strings) }

// Freeze assigns each interned string its byte offset in the flattened,
// length-prefixed data-segment buffer and compresses the offset table with
// internal/bitpack's frame-of-reference + delta coding — offsets are
// monotonically increasing, exactly the shape that encoding was built for.
func (p *StringPool) Freeze() {
	offsets := make([]uint64, len(p.strings))
	var cursor uint64
	for i, s := range p.strings {
		offsets[i] = cursor
		cursor += 4 + uint64(len(s)) // 4-byte length prefix + payload.
	}
	p.offsets = offsets
	p.frozen = bitpack.NewOffsetArray(offsets)
}

// Offset returns the byte offset of the idx-th interned string within the
// flattened buffer. Freeze must be called first.
func (p *StringPool) Offset(idx uint32) uint64 {
	return p.frozen.Index(int(idx))
}

// Bytes returns the flattened, length-prefixed buffer of every interned
// string, in index order — the exact bytes internal/backend lays down at
// the data segment's string-pool region.
func (p *StringPool) Bytes() []byte {
	var out []byte
	for _, s := range p.strings {
		n := uint32(len(s))
		out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
		out = append(out, s...)
	}
	return out
}

// TotalBytes returns the length of Bytes() without building it, for
// callers that only need to know where a following region starts.
func (p *StringPool) TotalBytes() uint64 {
	var n uint64
	for _, s := range p.strings {
		n += 4 + uint64(len(s))
	}
	return n
}

// DataPool holds raw, non-string constant byte blobs placed in the data
// segment. No pass adds blobs to it yet; array literals are built with
// array.new_fixed and boxing goes through the dynamic-type runtime.
type DataPool struct {
	blobs   [][]byte
	offsets bitpack.OffsetArray
}

// NewDataPool returns an empty pool.
func NewDataPool() *DataPool { return &DataPool{} }

// Add appends a blob and returns its index.
func (p *DataPool) Add(b []byte) uint32 {
	idx := uint32(len(p.blobs))
	p.blobs = append(p.blobs, b)
	return idx
}

// Freeze computes and compresses the offset table, to be called once all
// blobs for the compile have been added.
func (p *DataPool) Freeze() {
	offsets := make([]uint64, len(p.blobs))
	var cursor uint64
	for i, b := range p.blobs {
		offsets[i] = cursor
		cursor += uint64(len(b))
	}
	p.offsets = bitpack.NewOffsetArray(offsets)
}

// Offset returns the byte offset of the idx-th blob. Freeze must run first.
func (p *DataPool) Offset(idx uint32) uint64 {
	return p.offsets.Index(int(idx))
}

// Blob returns the raw bytes of the idx-th blob.
func (p *DataPool) Blob(idx uint32) []byte {
	return p.blobs[idx]
}

// Bytes returns every blob concatenated in index order, the exact bytes
// internal/backend lays down at the data segment's blob-pool region
// (placed immediately after the string pool's own region).
func (p *DataPool) Bytes() []byte {
	var out []byte
	for _, b := range p.blobs {
		out = append(out, b...)
	}
	return out
}

// TotalBytes returns the length of Bytes() without building it.
func (p *DataPool) TotalBytes() uint64 {
	var n uint64
	for _, b := range p.blobs {
		n += uint64(len(b))
	}
	return n
}
