package mocks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shiroemons/go-kifint/pkg/hg3"
)

// ErrMockEntryNotFound はエントリ未発見エラー
var ErrMockEntryNotFound = errors.New("mock: entry not found")

// MockExtractor はExtractorのモック実装です
// Files の内容をそのまま返し、HG-3 の解析と復元には Decoder を使います。
type MockExtractor struct {
	Files     map[string][]byte
	Decoder   hg3.PixelDecoder
	Error     error
	CallCount int
}

// NewMockExtractor は新しいMockExtractorを作成します
func NewMockExtractor(files map[string][]byte) *MockExtractor {
	return &MockExtractor{Files: files, Decoder: NewFakeCodec()}
}

// Names はモック実装です
func (m *MockExtractor) Names() []string {
	return slices.Sorted(maps.Keys(m.Files))
}

// Extract はモック実装です
func (m *MockExtractor) Extract(ctx context.Context, name string) ([]byte, error) {
	m.CallCount++
	if m.Error != nil {
		return nil, m.Error
	}
	data, ok := m.Files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMockEntryNotFound, name)
	}
	return data, nil
}

// ExtractMany はモック実装です
func (m *MockExtractor) ExtractMany(ctx context.Context, names []string, fn func(name string, data []byte) error) error {
	for _, name := range names {
		data, err := m.Extract(ctx, name)
		if err != nil {
			return err
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
	return nil
}

// ParseHG3 はモック実装です
func (m *MockExtractor) ParseHG3(ctx context.Context, name string, expand bool) (*hg3.Container, []byte, error) {
	data, err := m.Extract(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	c, err := hg3.Parse(bytes.NewReader(data), name, expand)
	if err != nil {
		return nil, nil, err
	}
	return c, data, nil
}

// DecodeHG3 はモック実装です
func (m *MockExtractor) DecodeHG3(ctx context.Context, name string, expand bool) (*hg3.Container, []*hg3.Frame, error) {
	c, data, err := m.ParseHG3(ctx, name, expand)
	if err != nil {
		return nil, nil, err
	}
	frames, err := c.DecodeFrames(ctx, bytes.NewReader(data), m.Decoder)
	if err != nil {
		return nil, nil, err
	}
	return c, frames, nil
}
