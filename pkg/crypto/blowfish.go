package crypto

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/blowfish"
)

const blowfishBlockSize = blowfish.BlockSize

// KifintBlowfish は KIFINT のエントリ情報とデータを復号する Blowfish 互換の実装です。
// ファイル鍵のリトルエンディアン4バイトを鍵とし、ブロック内の32ビットワードを
// リトルエンディアンとして扱います。
// 直前に使った鍵のスケジュールを保持するので、同じアーカイブの連続した呼び出しは安価です。
type KifintBlowfish struct {
	mu     sync.Mutex
	key    uint32
	cipher *blowfish.Cipher
}

// NewKifintBlowfish は新しい KifintBlowfish を作成します。
func NewKifintBlowfish() *KifintBlowfish {
	return &KifintBlowfish{}
}

func (b *KifintBlowfish) cipherFor(fileKey uint32) (*blowfish.Cipher, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cipher != nil && b.key == fileKey {
		return b.cipher, nil
	}
	var keyBytes [4]byte
	binary.LittleEndian.PutUint32(keyBytes[:], fileKey)
	c, err := blowfish.NewCipher(keyBytes[:])
	if err != nil {
		return nil, fmt.Errorf("blowfish key setup: %w", err)
	}
	b.key = fileKey
	b.cipher = c
	return c, nil
}

// DecryptEntryInfo はオフセットと長さの8バイトをその場で復号します。
func (b *KifintBlowfish) DecryptEntryInfo(info *[8]byte, fileKey uint32) error {
	c, err := b.cipherFor(fileKey)
	if err != nil {
		return err
	}
	cryptBlock(c.Decrypt, info[:])
	return nil
}

// DecryptData はバッファをその場で復号します。8バイトに満たない末尾は変更されません。
func (b *KifintBlowfish) DecryptData(buf []byte, fileKey uint32) error {
	c, err := b.cipherFor(fileKey)
	if err != nil {
		return err
	}
	for off := 0; off+blowfishBlockSize <= len(buf); off += blowfishBlockSize {
		cryptBlock(c.Decrypt, buf[off:off+blowfishBlockSize])
	}
	return nil
}

// EncryptEntryInfo は DecryptEntryInfo の逆変換です。
func (b *KifintBlowfish) EncryptEntryInfo(info *[8]byte, fileKey uint32) error {
	c, err := b.cipherFor(fileKey)
	if err != nil {
		return err
	}
	cryptBlock(c.Encrypt, info[:])
	return nil
}

// EncryptData は DecryptData の逆変換です。
func (b *KifintBlowfish) EncryptData(buf []byte, fileKey uint32) error {
	c, err := b.cipherFor(fileKey)
	if err != nil {
		return err
	}
	for off := 0; off+blowfishBlockSize <= len(buf); off += blowfishBlockSize {
		cryptBlock(c.Encrypt, buf[off:off+blowfishBlockSize])
	}
	return nil
}

// cryptBlock は x/crypto/blowfish のビッグエンディアンのワード順と
// リトルエンディアンのワード順を入れ替えながら1ブロックを処理します。
func cryptBlock(fn func(dst, src []byte), block []byte) {
	swapWords(block)
	fn(block, block)
	swapWords(block)
}

func swapWords(block []byte) {
	block[0], block[1], block[2], block[3] = block[3], block[2], block[1], block[0]
	block[4], block[5], block[6], block[7] = block[7], block[6], block[5], block[4]
}
