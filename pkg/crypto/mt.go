// Package crypto は KIFINT アーカイブで使用される鍵導出と暗号化アルゴリズムを提供します。
//
// 主な機能:
//   - RNGMT / MTGenerate: メルセンヌ・ツイスタ (MT19937) による鍵導出
//   - TOCSeed: タイトル固有の秘密文字列からの TOC シード計算
//   - UnobfuscateFileName: エントリ名の難読化解除
//   - KifintBlowfish: エントリ情報とデータの復号 (Blowfish 互換)
package crypto

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff

	initMultiplier = 1812433253
)

// RNGMT はメルセンヌ・ツイスタ (MT19937) 疑似乱数生成器です。
type RNGMT struct {
	mt  [n]uint32
	mti int
}

// NewRNGMT は指定されたシードで RNGMT を初期化して返します。
func NewRNGMT(seed uint32) *RNGMT {
	r := &RNGMT{}
	r.Seed(seed)
	return r
}

// Seed は init_genrand と同じ手順で内部状態を初期化します。
func (r *RNGMT) Seed(seed uint32) {
	r.mt[0] = seed
	for r.mti = 1; r.mti < n; r.mti++ {
		prev := r.mt[r.mti-1]
		r.mt[r.mti] = initMultiplier*(prev^(prev>>30)) + uint32(r.mti)
	}
}

// NextUint32 は次の32ビット符号なし乱数を生成して返します。
func (r *RNGMT) NextUint32() uint32 {
	if r.mti >= n {
		r.twist()
	}

	y := r.mt[r.mti]
	r.mti++

	// Tempering
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18

	return y
}

// twist は状態配列 624 要素をまとめて更新します。
func (r *RNGMT) twist() {
	mag01 := [2]uint32{0x0, matrixA}

	var kk int
	for kk = 0; kk < n-m; kk++ {
		y := (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
		r.mt[kk] = r.mt[kk+m] ^ (y >> 1) ^ mag01[y&0x1]
	}
	for ; kk < n-1; kk++ {
		y := (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
		r.mt[kk] = r.mt[kk+(m-n)] ^ (y >> 1) ^ mag01[y&0x1]
	}
	y := (r.mt[n-1] & upperMask) | (r.mt[0] & lowerMask)
	r.mt[n-1] = r.mt[m-1] ^ (y >> 1) ^ mag01[y&0x1]

	r.mti = 0
}

// MTGenerate はシードで生成器を毎回初期化し、最初の出力値だけを返します。
// 呼び出し間で状態を保持しないため、エントリごとの鍵導出に使えます。
func MTGenerate(seed uint32) uint32 {
	var r RNGMT
	r.Seed(seed)
	return r.NextUint32()
}
