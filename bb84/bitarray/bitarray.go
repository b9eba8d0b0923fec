// Package bitarray provides a densely-packed array of bits, used for the bit,
// basis and measurement outcome sequences exchanged during a BB84 run.
package bitarray

import (
	"fmt"
	"math/bits"
	"math/rand"
	"strings"
)

// A Dense is a bit array where every bit is explicitly represented. Position 0
// is the least significant bit of the first byte.
type Dense struct {
	bits []byte
	len  int

	offset int
}

const blockSize = 8

// NewDense returns a new Dense whose data is a copy of data, and whose length
// is bitLen. If bitLen is longer than data, then trailing zeros are added. If
// bitLen is negative, then it is inferred from data.
func NewDense(data []byte, bitLen int) Dense {
	if bitLen < 0 {
		bitLen = len(data) * blockSize
	}
	bits := make([]byte, BytesFor(bitLen))
	copy(bits, data)
	return Dense{
		bits: bits,
		len:  bitLen,
	}
}

// Empty returns an empty, dense bit array.
func Empty() Dense {
	return Dense{}
}

// Random returns n independent, uniformly distributed bits drawn from r.
func Random(r *rand.Rand, n int) Dense {
	buf := make([]byte, BytesFor(n))
	r.Read(buf)
	return NewDense(buf, n)
}

// FromString parses a string of '0's and '1's, position 0 first. Spaces are
// ignored.
func FromString(s string) (Dense, error) {
	var d Dense
	for _, c := range s {
		switch c {
		case '0':
			d.AppendBit(false)
		case '1':
			d.AppendBit(true)
		case ' ':
		default:
			return Dense{}, fmt.Errorf("invalid bit string %q: unexpected %q", s, c)
		}
	}
	return d, nil
}

// FromInts builds a Dense from a slice of 0/1 values.
func FromInts(vals ...int) (Dense, error) {
	var d Dense
	for i, v := range vals {
		if v != 0 && v != 1 {
			return Dense{}, fmt.Errorf("value %d at position %d is not a bit", v, i)
		}
		d.AppendBit(v == 1)
	}
	return d, nil
}

// Size returns the number of bits in d.
func (d Dense) Size() int {
	return d.len
}

// ByteSize returns the number of bytes necessary to represent d.
func (d Dense) ByteSize() int {
	return BytesFor(d.len)
}

// Data returns a copy of the bytes underlying d.
func (d Dense) Data() []byte {
	data := make([]byte, 0, BytesFor(d.len))
	for i := 0; i < BytesFor(d.len); i++ {
		data = append(data, d.getByte(i))
	}
	return data
}

// String renders d as '0's and '1's, position 0 first.
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Ints returns d as a slice of 0/1 values.
func (d Dense) Ints() []int {
	r := make([]int, d.len)
	for i := range r {
		if d.Get(i) {
			r[i] = 1
		}
	}
	return r
}

// Equal reports whether d and other have the same length and bits.
func (d Dense) Equal(other Dense) bool {
	return d.len == other.len && d.XOr(other).CountOnes() == 0
}

// And computes a bitwise AND operation between d and other. If one of the two
// is shorter than the other, then trailing 0s are implicitly added to make the
// sizes match.
func (d Dense) And(other Dense) Dense {
	n := d.len
	if other.len < n {
		n = other.len
	}
	r := Dense{
		bits: make([]byte, 0, BytesFor(n)),
		len:  n,
	}
	for i := 0; i < BytesFor(n); i++ {
		r.bits = append(r.bits, d.getByte(i)&other.getByte(i))
	}
	return r
}

// XOr computes a bitwise XOR operation between d and other. If one of the two
// is shorter than the other, then trailing 0s are implicitly added to make the
// sizes match.
func (d Dense) XOr(other Dense) Dense {
	n := d.len
	if other.len > n {
		n = other.len
	}
	r := Dense{
		bits: make([]byte, 0, BytesFor(n)),
		len:  n,
	}
	for i := 0; i < BytesFor(n); i++ {
		r.bits = append(r.bits, d.getByte(i)^other.getByte(i))
	}
	return r
}

// XNor computes a bitwise equality operation between d and other. If one of the
// two is shorter than the other, then trailing 0s are implicitly added to make
// the sizes match.
func (d Dense) XNor(other Dense) Dense {
	r := d.XOr(other)
	for i := range r.bits {
		r.bits[i] = ^r.bits[i]
	}
	r.clearTail()
	return r
}

// Not returns a copy of d whose bits have all been flipped.
func (d Dense) Not() Dense {
	return d.XNor(Dense{})
}

// Parity returns the overall parity of d, with true corresponding to 1 and
// false to 0.
func (d Dense) Parity() bool {
	var sum byte
	for i := 0; i < BytesFor(d.len); i++ {
		sum ^= d.getByte(i)
	}
	return bits.OnesCount8(sum)%2 == 1
}

// CountOnes returns the total number of bits set in d.
func (d Dense) CountOnes() int {
	var sum int
	for i := 0; i < BytesFor(d.len); i++ {
		sum += bits.OnesCount8(d.getByte(i))
	}
	return sum
}

// Select selects a subset of bits from d, according to which bits are set in
// mask.
func (d Dense) Select(mask Dense) Dense {
	var r Dense
	for i := 0; i < d.len; i++ {
		if !mask.Get(i) {
			continue
		}
		r.AppendBit(d.Get(i))
	}
	return r
}

// Reverse returns a copy of d with the order of its bits reversed.
func (d Dense) Reverse() Dense {
	r := NewDense(nil, d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			r.Set(d.len-1-i, true)
		}
	}
	return r
}

// Permute returns a copy of d whose i-th bit is d's perm[i]-th bit.
func (d Dense) Permute(perm []int) Dense {
	r := NewDense(nil, len(perm))
	for i, j := range perm {
		if d.Get(j) {
			r.Set(i, true)
		}
	}
	return r
}

// Slice creates a view into d including bits [start, end).
func (d Dense) Slice(start, end int) (Dense, error) {
	if end > d.len {
		return Dense{}, fmt.Errorf("slicing bitarray of len %d up to %d", d.len, end)
	}
	if start < 0 {
		return Dense{}, fmt.Errorf("slicing bitarray with negative start: %d", start)
	}
	if end < start {
		return Dense{}, fmt.Errorf("slicing bitarray to negative length: %d", end-start)
	}
	abs := start + d.offset
	blockStart := abs / blockSize
	blockEnd := BytesFor(end + d.offset)
	if blockEnd < blockStart {
		blockEnd = blockStart
	}
	return Dense{
		bits:   d.bits[blockStart:blockEnd],
		len:    end - start,
		offset: abs % blockSize,
	}, nil
}

// Get returns the bit at idx. Positions past the end of d read as 0.
func (d Dense) Get(idx int) bool {
	if idx < 0 || idx >= d.len {
		return false
	}
	idx = idx + d.offset
	block := d.bits[idx/blockSize]
	pos := idx % blockSize
	return 0 < block&(1<<pos)
}

// Set assigns the bit at idx. It panics if idx is out of range.
func (d *Dense) Set(idx int, bit bool) {
	if idx < 0 || idx >= d.len {
		panic(fmt.Sprintf("bitarray: index %d out of range [0, %d)", idx, d.len))
	}
	idx = idx + d.offset
	if bit {
		d.bits[idx/blockSize] |= 1 << (idx % blockSize)
	} else {
		d.bits[idx/blockSize] &^= 1 << (idx % blockSize)
	}
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	if d.offset != 0 || len(d.bits) != BytesFor(d.len) {
		*d = NewDense(d.Data(), d.len)
	}
	j, pos := d.len/blockSize, d.len%blockSize
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	d.len += 1
	if bit {
		d.bits[j] |= 1 << pos
	}
}

func (d Dense) getByte(i int) byte {
	if i >= len(d.bits) {
		return 0
	}
	lo := d.bits[i] >> d.offset
	var hi byte
	if d.offset > 0 && i+1 < len(d.bits) {
		hi = d.bits[i+1] << (blockSize - d.offset)
	}
	r := lo | hi
	overdraw := (i+1)*blockSize - d.len
	if overdraw < 0 {
		overdraw = 0
	}
	if overdraw >= blockSize {
		return 0
	}
	return r << overdraw >> overdraw
}

func (d *Dense) clearTail() {
	if off := d.len % blockSize; off != 0 && len(d.bits) > 0 {
		d.bits[len(d.bits)-1] &= 0xFF >> (blockSize - off)
	}
}

// BytesFor returns the number of bytes necessary to hold the provided number of
// bits.
func BytesFor(bits int) int {
	return (bits + blockSize - 1) / blockSize
}
