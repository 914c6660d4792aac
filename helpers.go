package triedb

// UpperBound returns the upper bound for the given prefix: the first key
// that does not start with it.
//
// It increments the last byte of the prefix that is not 0xFF and drops
// everything after it. If all bytes are 0xFF, or the prefix is empty, it
// returns nil, meaning no upper bound.
//
// For example, [0x01, 0x02, 0xFF] gives [0x01, 0x03] and [0xFF, 0xFF]
// gives nil.
func UpperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xFF {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}
