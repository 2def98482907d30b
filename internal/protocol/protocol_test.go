package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	for count := MinCount; count <= MaxCount; count++ {
		c, err := Encode(count)
		require.NoError(t, err)

		assert.Equal(t, Command(100+count), c)
		assert.Equal(t, count, c.Count())
		assert.True(t, c.Valid())
	}
}

func TestEncode_OutOfRange(t *testing.T) {
	for _, count := range []int{-1, 6, 100} {
		_, err := Encode(count)
		assert.ErrorIs(t, err, ErrCountOutOfRange, "count %d", count)
	}
}

func TestFrame(t *testing.T) {
	c, err := Encode(2)
	require.NoError(t, err)

	assert.Equal(t, []byte("102\n"), c.Frame())
	assert.Equal(t, "102", c.String())
	assert.Equal(t, []byte("100\n"), Neutral.Frame())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"100\n", Neutral},
		{"105", Command(105)},
		{"103\r\n", Command(103)},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Decode([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, line := range []string{"", "\n", "99\n", "106\n", "abc\n", "10 2\n", "102\n\n"} {
		_, err := Decode([]byte(line))
		assert.ErrorIs(t, err, ErrInvalidCommand, "line %q", line)
	}
}

func TestEncodeDecode_FrameIsDecodable(t *testing.T) {
	for count := MinCount; count <= MaxCount; count++ {
		c, _ := Encode(count)
		got, err := Decode(c.Frame())
		require.NoError(t, err)
		assert.Equal(t, count, got.Count())
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Command{"command": Command(104)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":104}`, string(data))
}
