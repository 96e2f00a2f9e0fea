package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNGMT_Deterministic(t *testing.T) {
	// 同じシードで初期化すると同じシーケンスが得られることを確認
	rng1 := NewRNGMT(12345)
	rng2 := NewRNGMT(12345)

	for i := 0; i < 1000; i++ {
		v1 := rng1.NextUint32()
		v2 := rng2.NextUint32()
		require.Equalf(t, v1, v2, "シーケンスが異なる: i=%d", i)
	}
}

func TestRNGMT_DifferentSeeds(t *testing.T) {
	rng1 := NewRNGMT(12345)
	rng2 := NewRNGMT(54321)

	allSame := true
	for i := 0; i < 100; i++ {
		if rng1.NextUint32() != rng2.NextUint32() {
			allSame = false
			break
		}
	}
	assert.False(t, allSame, "異なるシードでも同じシーケンスが生成された")
}

func TestRNGMT_ReferenceValues(t *testing.T) {
	// MT19937 参照実装 (init_genrand) の既知の出力
	rng := NewRNGMT(5489)
	assert.Equal(t, uint32(3499211612), rng.NextUint32())
	assert.Equal(t, uint32(581869302), rng.NextUint32())
	assert.Equal(t, uint32(3890346734), rng.NextUint32())

	rng = NewRNGMT(1)
	assert.Equal(t, uint32(0x6AC1F425), rng.NextUint32())
	assert.Equal(t, uint32(0xFF4780EB), rng.NextUint32())
}

func TestRNGMT_LargeSequence(t *testing.T) {
	// 状態配列の再生成を何度も跨いでもパニックしないことを確認
	rng := NewRNGMT(42)
	for i := 0; i < 100000; i++ {
		_ = rng.NextUint32()
	}
}

func TestMTGenerate(t *testing.T) {
	tests := []struct {
		name string
		seed uint32
		want uint32
	}{
		{"デフォルトシード", 5489, 3499211612},
		{"シード1", 1, 0x6AC1F425},
		{"シード0", 0, 0x8C7F0AAC},
		{"シード1234", 1234, 0x31076B2F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MTGenerate(tt.seed))
		})
	}
}

func TestMTGenerate_NoSharedState(t *testing.T) {
	// 呼び出しごとに再初期化されるため、間に別のシードを挟んでも結果は変わらない
	first := MTGenerate(777)
	_ = MTGenerate(888)
	assert.Equal(t, first, MTGenerate(777))
}
