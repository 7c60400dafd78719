// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import "fmt"

// CounterReader extracts unsigned integers from a fixed-format line of
// kernel counter text without allocating. The reader holds a cursor
// into the caller's buffer; each ReadUint64 call skips separator bytes,
// accumulates consecutive ASCII digits, and advances past them.
//
// Kernel counter files are ASCII, space separated, and occasionally
// grow trailing fields across kernel versions, so callers mark each
// field required or optional. A missing optional field parses as 0.
type CounterReader struct {
	buf []byte
	pos int
}

// NewCounterReader returns a reader positioned at the start of buf.
func NewCounterReader(buf []byte) *CounterReader {
	return &CounterReader{buf: buf}
}

// SkipPrefix consumes prefix if the cursor sits exactly on it and
// reports whether it did.
func (r *CounterReader) SkipPrefix(prefix string) bool {
	if len(r.buf)-r.pos < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if r.buf[r.pos+i] != prefix[i] {
			return false
		}
	}
	r.pos += len(prefix)
	return true
}

// ReadUint64 skips spaces and tabs, then accumulates consecutive digit
// bytes into a value and advances the cursor past them.
//
// If no digit is found (end of buffer, or a non-digit such as a
// newline): a required field fails with ErrParse, an optional field
// succeeds with value 0 and leaves the cursor in place.
func (r *CounterReader) ReadUint64(required bool) (uint64, error) {
	start := r.pos
	for r.pos < len(r.buf) && (r.buf[r.pos] == ' ' || r.buf[r.pos] == '\t') {
		r.pos++
	}

	var (
		value  uint64
		digits int
	)
	for r.pos < len(r.buf) && r.buf[r.pos] >= '0' && r.buf[r.pos] <= '9' {
		value = value*10 + uint64(r.buf[r.pos]-'0')
		digits++
		r.pos++
	}

	if digits == 0 {
		if required {
			return 0, fmt.Errorf("%w: required field missing at offset %d", ErrParse, start)
		}
		r.pos = start
		return 0, nil
	}
	return value, nil
}

// SkipLine advances the cursor past the next newline, or to the end of
// the buffer if none remains.
func (r *CounterReader) SkipLine() {
	for r.pos < len(r.buf) {
		if r.buf[r.pos] == '\n' {
			r.pos++
			return
		}
		r.pos++
	}
}

// AtEnd reports whether the cursor has consumed the whole buffer.
func (r *CounterReader) AtEnd() bool {
	return r.pos >= len(r.buf)
}
