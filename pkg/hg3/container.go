package hg3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Parse は HG-3 のタグ連鎖をたどり、画像ごとのメタデータとフレーム位置を収集します。
// expand はフレーム復元時に全体のキャンバスへ合成するかどうかを記録します。
func Parse(r io.ReadSeeker, fileName string, expand bool) (*Container, error) {
	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(hdr.Signature[:]) != Signature {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSignature, hdr.Signature[:])
	}

	c := &Container{
		FileName: fileName,
		Expanded: expand,
	}

	for {
		startPosition, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}

		var offset offsetRecord
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return nil, fmt.Errorf("failed to read offset record at %d: %w", startPosition, err)
		}
		if offset.OffsetNext < 0 {
			return nil, fmt.Errorf("%w: negative offset %d at %d", ErrInvalidTag, offset.OffsetNext, startPosition)
		}

		img, err := readImage(r)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", len(c.Images), err)
		}
		c.Images = append(c.Images, img)

		if offset.OffsetNext == 0 {
			break
		}
		if _, err := r.Seek(startPosition+int64(offset.OffsetNext), io.SeekStart); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// readImage は stdinfo タグから始まる1つの画像のタグ連鎖を読み込みます。
func readImage(r io.ReadSeeker) (Image, error) {
	tag, err := readStdInfoTag(r)
	if err != nil {
		return Image{}, err
	}

	var img Image
	if err := binary.Read(r, binary.LittleEndian, &img.Info); err != nil {
		return Image{}, fmt.Errorf("failed to read stdinfo: %w", err)
	}
	if rest := int64(tag.Length) - stdInfoSize; rest > 0 {
		if _, err := r.Seek(rest, io.SeekCurrent); err != nil {
			return Image{}, err
		}
	}

	for tag.OffsetNext != 0 {
		if tag, err = readTag(r); err != nil {
			return Image{}, err
		}
		if tag.Length < 0 {
			return Image{}, fmt.Errorf("%w: %q has negative length %d", ErrInvalidTag, tag.Name(), tag.Length)
		}

		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return Image{}, err
		}
		if tag.IsFrame() {
			img.FrameOffsets = append(img.FrameOffsets, pos)
		}
		// 未知のタグも同じようにペイロードを読み飛ばす
		if _, err := r.Seek(int64(tag.Length), io.SeekCurrent); err != nil {
			return Image{}, err
		}
	}

	return img, nil
}

func readTag(r io.Reader) (Tag, error) {
	var tag Tag
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return Tag{}, fmt.Errorf("failed to read tag: %w", err)
	}
	return tag, nil
}

// readStdInfoTag は stdinfo タグを読み込みます。
// 一致しない場合は読み込み開始位置を1バイトずつ先へ進め、最大 tagSize-1 回まで読み直します。
// stdinfo の前には通常 1〜7 バイトの詰め物があります。
func readStdInfoTag(r io.ReadSeeker) (Tag, error) {
	tagStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Tag{}, err
	}

	for skip := int64(0); skip < tagSize; skip++ {
		if skip > 0 {
			if _, err := r.Seek(tagStart+skip, io.SeekStart); err != nil {
				return Tag{}, err
			}
		}
		tag, err := readTag(r)
		if err != nil {
			if isEndOfStream(err) {
				break
			}
			return Tag{}, err
		}
		if tag.IsStdInfo() {
			return tag, nil
		}
	}

	return Tag{}, fmt.Errorf("%w near offset %d", ErrStdInfoNotFound, tagStart)
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
