package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKifintBlowfish_EntryInfoRoundTrip(t *testing.T) {
	bf := NewKifintBlowfish()
	info := [8]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80}
	orig := info

	require.NoError(t, bf.EncryptEntryInfo(&info, 0xCAFEBABE))
	assert.NotEqual(t, orig, info)
	require.NoError(t, bf.DecryptEntryInfo(&info, 0xCAFEBABE))
	assert.Equal(t, orig, info)
}

func TestKifintBlowfish_DataRoundTrip(t *testing.T) {
	bf := NewKifintBlowfish()
	data := bytes.Repeat([]byte("HG-3data"), 4)
	data = append(data, 'x', 'y', 'z') // 8バイトに満たない末尾
	orig := append([]byte(nil), data...)

	require.NoError(t, bf.EncryptData(data, 1))
	assert.NotEqual(t, orig[:32], data[:32])
	assert.Equal(t, orig[32:], data[32:], "末尾は変更されない")

	require.NoError(t, bf.DecryptData(data, 1))
	assert.Equal(t, orig, data)
}

func TestKifintBlowfish_KeyChange(t *testing.T) {
	bf := NewKifintBlowfish()
	a := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	b := a

	require.NoError(t, bf.EncryptEntryInfo(&a, 100))
	require.NoError(t, bf.EncryptEntryInfo(&b, 200))
	assert.NotEqual(t, a, b, "鍵が変われば結果も変わる")

	require.NoError(t, bf.DecryptEntryInfo(&a, 100))
	assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, a)
}

func TestSwapWords(t *testing.T) {
	block := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	swapWords(block)
	assert.Equal(t, []byte{4, 3, 2, 1, 8, 7, 6, 5}, block)
}
