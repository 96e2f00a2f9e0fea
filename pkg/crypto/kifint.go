package crypto

import "unicode/utf16"

const (
	tocSeedPoly = 0x04C11DB7

	// alphabetLen は難読化に使われるアルファベット表の長さ
	alphabetLen = 52
)

var (
	forwardAlphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")
	reverseAlphabet = []byte("zyxwvutsrqponmlkjihgfedcbaZYXWVUTSRQPONMLKJIHGFEDCBA")
)

// TOCSeed はタイトル固有の秘密文字列から TOC シードを計算します。
// 文字列は UTF-16 のコード単位ごとに処理されます。
func TOCSeed(secret string) uint32 {
	seed := uint32(0xFFFFFFFF)
	for _, c := range utf16.Encode([]rune(secret)) {
		seed ^= uint32(c) << 24
		for j := 0; j < 8; j++ {
			if seed&0x80000000 != 0 {
				seed = (seed << 1) ^ tocSeedPoly
			} else {
				seed <<= 1
			}
		}
		seed = ^seed
	}
	return seed
}

// fileNameShift はエントリごとのシードから文字ずらし量の初期値を求めます。
func fileNameShift(seed uint32) int {
	key := MTGenerate(seed)
	return int(byte(key>>24) + byte(key>>16) + byte(key>>8) + byte(key))
}

// UnobfuscateFileName はエントリ名の難読化をその場で解除します。
// 処理は最初の NUL バイトで止まり、英字以外のバイトは変更されません。
// seed には TOCSeed(secret) にエントリの元の位置を足した値を渡します。
func UnobfuscateFileName(name []byte, seed uint32) {
	shift := fileNameShift(seed)
	for i, c := range name {
		if c == 0 {
			break
		}
		if isASCIILetter(c) {
			if index := reverseIndex(c, shift); index >= 0 {
				name[i] = forwardAlphabet[index]
			}
		}
		shift++
	}
}

// ObfuscateFileName は UnobfuscateFileName の逆変換です。
// テスト用アーカイブの作成に使います。
func ObfuscateFileName(name []byte, seed uint32) {
	shift := fileNameShift(seed)
	for i, c := range name {
		if c == 0 {
			break
		}
		if isASCIILetter(c) {
			if index := forwardIndex(c); index >= 0 {
				name[i] = reverseAlphabet[(shift+index)%alphabetLen]
			}
		}
		shift++
	}
}

// reverseIndex は逆順アルファベット表を shift の位置から4文字ずつ先読みしながら探し、
// 見つかった位置までの距離を返します。
func reverseIndex(c byte, shift int) int {
	for index := 0; index < alphabetLen; index += 4 {
		base := shift + index
		switch c {
		case reverseAlphabet[base%alphabetLen]:
			return index
		case reverseAlphabet[(base+1)%alphabetLen]:
			return index + 1
		case reverseAlphabet[(base+2)%alphabetLen]:
			return index + 2
		case reverseAlphabet[(base+3)%alphabetLen]:
			return index + 3
		}
	}
	return -1
}

func forwardIndex(c byte) int {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 26
	}
	return -1
}

func isASCIILetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
