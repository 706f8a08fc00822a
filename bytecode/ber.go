package bytecode

// AppendBER appends v in base-128 with the most significant chunk first.
// Every byte but the last has its high bit set.
func AppendBER(buf []byte, v uint64) []byte {
	var chunks [10]byte
	n := 0
	for {
		chunks[n] = byte(v & 0x7f)
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	for i := n - 1; i > 0; i-- {
		buf = append(buf, chunks[i]|0x80)
	}
	return append(buf, chunks[0])
}

// ReadBER decodes a BER integer from the front of data and returns it with
// the number of bytes consumed. ok is false if data ends mid-integer or the
// value does not fit in 64 bits.
func ReadBER(data []byte) (v uint64, n int, ok bool) {
	for n < len(data) {
		b := data[n]
		n++
		if v > (1<<57)-1 {
			return 0, n, false
		}
		v = v<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, n, true
		}
	}
	return 0, n, false
}

// Compact signed integers.
//
//	0x00                 zero
//	6..127 / -128..-6    single byte, value ±5
//	1..4 / -1..-4        that many little-endian bytes follow; negative
//	                     tags hold a two's-complement value
//	5 / -5               a BER magnitude follows
const (
	intBERPositive = 5
	intBERNegative = -5

	tagBERNegative = 0xfb // int8(-5)
)

// AppendInt appends v in the compact signed form.
func AppendInt(buf []byte, v int64) []byte {
	switch {
	case v == 0:
		return append(buf, 0)
	case v > 0 && v <= 122:
		return append(buf, byte(v+5))
	case v < 0 && v >= -123:
		return append(buf, byte(int8(v-5)))
	case v > 0 && v < 1<<32:
		n := byteLen(uint64(v))
		buf = append(buf, byte(n))
		return appendLE(buf, uint64(v), n)
	case v < 0 && v >= -(1<<32):
		n := 1
		for v < -(int64(1) << (8 * n)) {
			n++
		}
		buf = append(buf, byte(int8(-n)))
		return appendLE(buf, uint64(v), n)
	case v > 0:
		return AppendBER(append(buf, intBERPositive), uint64(v))
	}
	return AppendBER(append(buf, tagBERNegative), uint64(^v)+1)
}

// ReadInt decodes a compact signed integer from the front of data.
func ReadInt(data []byte) (v int64, n int, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	c := int8(data[0])
	switch {
	case c == 0:
		return 0, 1, true
	case c > intBERPositive:
		return int64(c) - 5, 1, true
	case c < intBERNegative:
		return int64(c) + 5, 1, true
	case c == intBERPositive, c == intBERNegative:
		m, k, ok := ReadBER(data[1:])
		if !ok {
			return 0, 1 + k, false
		}
		if c == intBERNegative {
			return -int64(m), 1 + k, true
		}
		return int64(m), 1 + k, true
	}
	size := int(c)
	if size < 0 {
		size = -size
	}
	if len(data) < 1+size {
		return 0, len(data), false
	}
	var x uint64
	for i := size; i > 0; i-- {
		x = x<<8 | uint64(data[i])
	}
	if c < 0 {
		return int64(x) - int64(1)<<(8*size), 1 + size, true
	}
	return int64(x), 1 + size, true
}

func byteLen(v uint64) int {
	n := 1
	for v >= 1<<(8*n) {
		n++
	}
	return n
}

func appendLE(buf []byte, v uint64, n int) []byte {
	for i := 0; i < n; i++ {
		buf = append(buf, byte(v>>(8*i)))
	}
	return buf
}
