// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterReader_ReadUint64(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		required bool
		want     uint64
		wantErr  bool
	}{
		{
			name:     "value surrounded by spaces",
			input:    "  42 ",
			required: true,
			want:     42,
		},
		{
			name:     "tab separated",
			input:    "\t\t7",
			required: true,
			want:     7,
		},
		{
			name:     "zero",
			input:    "0",
			required: true,
			want:     0,
		},
		{
			name:     "large counter",
			input:    "18446744073709551615",
			required: true,
			want:     18446744073709551615,
		},
		{
			name:     "empty required fails",
			input:    "",
			required: true,
			wantErr:  true,
		},
		{
			name:     "empty optional defaults to zero",
			input:    "",
			required: false,
			want:     0,
		},
		{
			name:     "spaces only required fails",
			input:    "   ",
			required: true,
			wantErr:  true,
		},
		{
			name:     "spaces only optional defaults to zero",
			input:    "   ",
			required: false,
			want:     0,
		},
		{
			name:     "non-digit required fails",
			input:    " abc",
			required: true,
			wantErr:  true,
		},
		{
			name:     "newline stops optional field",
			input:    "\n123",
			required: false,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCounterReader([]byte(tt.input))
			got, err := r.ReadUint64(tt.required)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCounterReader_AdvancesPastValue(t *testing.T) {
	r := NewCounterReader([]byte("  42 99"))

	first, err := r.ReadUint64(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), first)

	second, err := r.ReadUint64(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), second)

	// Nothing left: optional succeeds with zero, required fails.
	v, err := r.ReadUint64(false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
	_, err = r.ReadUint64(true)
	assert.ErrorIs(t, err, ErrParse)
}

func TestCounterReader_MissingOptionalDoesNotConsume(t *testing.T) {
	// An optional read that finds a newline must leave the cursor in
	// place so line-oriented callers can still SkipLine correctly.
	r := NewCounterReader([]byte(" \n5"))
	v, err := r.ReadUint64(false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	r.SkipLine()
	v, err = r.ReadUint64(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
}

func TestCounterReader_SkipPrefix(t *testing.T) {
	r := NewCounterReader([]byte("MemTotal: 8192 kB"))
	assert.False(t, r.SkipPrefix("MemFree:"))
	assert.True(t, r.SkipPrefix("MemTotal:"))

	v, err := r.ReadUint64(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(8192), v)
}

func TestCounterReader_SkipLine(t *testing.T) {
	r := NewCounterReader([]byte("junk line\n10\n"))
	r.SkipLine()
	v, err := r.ReadUint64(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)
	r.SkipLine()
	assert.True(t, r.AtEnd())
}
