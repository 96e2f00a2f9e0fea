// Package mocks はテスト用のモック実装を提供します
package mocks

import (
	"maps"
	"slices"
	"sync"
)

// MockFileSystem はテスト用のファイルシステムモック
type MockFileSystem struct {
	mu    sync.Mutex
	Files map[string][]byte
	Dirs  map[string]bool
	Error error
}

// NewMockFileSystem は新しいMockFileSystemを作成します
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files: make(map[string][]byte),
		Dirs:  make(map[string]bool),
	}
}

// WriteFile はファイルを書き込みます
func (fs *MockFileSystem) WriteFile(filename string, data []byte, perm uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Error != nil {
		return fs.Error
	}
	fs.Files[filename] = data
	return nil
}

// MkdirAll はディレクトリを作成します
func (fs *MockFileSystem) MkdirAll(path string, perm uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Error != nil {
		return fs.Error
	}
	fs.Dirs[path] = true
	return nil
}

// FileNames は書き込まれたファイル名を昇順で返します
func (fs *MockFileSystem) FileNames() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return slices.Sorted(maps.Keys(fs.Files))
}
