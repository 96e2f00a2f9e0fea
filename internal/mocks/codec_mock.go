package mocks

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/shiroemons/go-kifint/pkg/hg3"
)

var (
	// ErrMockDecryptFailed は復号失敗エラー
	ErrMockDecryptFailed = errors.New("mock: failed to decrypt")
	// ErrMockDecodeFailed はピクセル展開失敗エラー
	ErrMockDecodeFailed = errors.New("mock: failed to decode pixels")
)

// InfoCall は DecryptEntryInfo の呼び出し記録
type InfoCall struct {
	Info    [8]byte // 復号前の値
	FileKey uint32
}

// DataCall は DecryptData の呼び出し記録
type DataCall struct {
	Length  int
	FileKey uint32
}

// FakeCodec は kifint.Codec のモック実装
// 鍵のバイト列との XOR で暗号化・復号するため、Encrypt と Decrypt は同じ変換です。
type FakeCodec struct {
	mu sync.Mutex

	InfoCalls  []InfoCall
	DataCalls  []DataCall
	PixelCalls []hg3.PixelInput

	// Identity が true の場合は変換を行わずに記録だけします
	Identity bool

	// Pixels が設定されていれば DecodePixels から呼ばれます。nil の場合は入力データをそのまま返します。
	Pixels func(in hg3.PixelInput) ([]byte, error)

	InfoError  error
	DataError  error
	PixelError error
}

// NewFakeCodec は新しい FakeCodec を作成
func NewFakeCodec() *FakeCodec {
	return &FakeCodec{}
}

// DecryptEntryInfo はモック実装
func (m *FakeCodec) DecryptEntryInfo(info *[8]byte, fileKey uint32) error {
	m.mu.Lock()
	m.InfoCalls = append(m.InfoCalls, InfoCall{Info: *info, FileKey: fileKey})
	m.mu.Unlock()

	if m.InfoError != nil {
		return m.InfoError
	}
	m.xor(info[:], fileKey)
	return nil
}

// DecryptData はモック実装
func (m *FakeCodec) DecryptData(buf []byte, fileKey uint32) error {
	m.mu.Lock()
	m.DataCalls = append(m.DataCalls, DataCall{Length: len(buf), FileKey: fileKey})
	m.mu.Unlock()

	if m.DataError != nil {
		return m.DataError
	}
	m.xor(buf, fileKey)
	return nil
}

// EncryptEntryInfo はテスト用アーカイブの作成に使います
func (m *FakeCodec) EncryptEntryInfo(info *[8]byte, fileKey uint32) error {
	m.xor(info[:], fileKey)
	return nil
}

// EncryptData はテスト用アーカイブの作成に使います
func (m *FakeCodec) EncryptData(buf []byte, fileKey uint32) error {
	m.xor(buf, fileKey)
	return nil
}

// DecodePixels はモック実装
func (m *FakeCodec) DecodePixels(in hg3.PixelInput) ([]byte, error) {
	m.mu.Lock()
	m.PixelCalls = append(m.PixelCalls, in)
	m.mu.Unlock()

	if m.PixelError != nil {
		return nil, m.PixelError
	}
	if m.Pixels != nil {
		return m.Pixels(in)
	}
	return in.Data, nil
}

// DataCallCount は DecryptData の呼び出し回数を返します
func (m *FakeCodec) DataCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DataCalls)
}

func (m *FakeCodec) xor(buf []byte, fileKey uint32) {
	if m.Identity {
		return
	}
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], fileKey)
	for i := range buf {
		buf[i] ^= key[i%4]
	}
}
