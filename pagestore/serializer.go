package pagestore

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/snappy"

	"github.com/Felmond13/orderedview/viewcore"
)

// Page bodies and meta bodies are opaque to every other component; only
// this file knows their wire format. Both are snappy-compressed, matching
// the compression storage/pager.go already applies to page blobs in the
// teacher corpus — we simply point the same codec at our own two record
// shapes instead of document pages.

// encodePage serializes an ordered list of RowIds.
//
// Wire format (pre-compression):
//
//	[uint32 count]
//	repeated count times:
//	  [uint16 collectionLen][collection bytes][uint16 keyLen][key bytes]
func encodePage(rows []viewcore.RowId) []byte {
	size := 4
	for _, r := range rows {
		size += 2 + len(r.Collection) + 2 + len(r.Key)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(rows)))
	off := 4
	for _, r := range rows {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(r.Collection)))
		off += 2
		off += copy(buf[off:], r.Collection)
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(r.Key)))
		off += 2
		off += copy(buf[off:], r.Key)
	}
	return snappy.Encode(nil, buf)
}

func decodePage(blob []byte) ([]viewcore.RowId, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("pagestore: decode page: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("pagestore: decode page: truncated header")
	}
	count := binary.LittleEndian.Uint32(raw[0:4])
	rows := make([]viewcore.RowId, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+2 > len(raw) {
			return nil, fmt.Errorf("pagestore: decode page: truncated collection length")
		}
		cl := int(binary.LittleEndian.Uint16(raw[off : off+2]))
		off += 2
		if off+cl > len(raw) {
			return nil, fmt.Errorf("pagestore: decode page: truncated collection")
		}
		collection := string(raw[off : off+cl])
		off += cl
		if off+2 > len(raw) {
			return nil, fmt.Errorf("pagestore: decode page: truncated key length")
		}
		kl := int(binary.LittleEndian.Uint16(raw[off : off+2]))
		off += 2
		if off+kl > len(raw) {
			return nil, fmt.Errorf("pagestore: decode page: truncated key")
		}
		key := string(raw[off : off+kl])
		off += kl
		rows = append(rows, viewcore.RowId{Collection: collection, Key: key})
	}
	return rows, nil
}

// encodeMeta serializes {group, prevPageId, count}. nextPageId is never
// persisted — GroupIndex derives it when it walks the chain on load.
//
// Wire format (pre-compression):
//
//	[uint16 groupLen][group bytes][uint16 prevLen][prev bytes][uint32 count]
func encodeMeta(m viewcore.PageMeta) []byte {
	group := []byte(m.Group)
	prev := []byte(m.PrevPageID)
	buf := make([]byte, 2+len(group)+2+len(prev)+4)
	off := 0
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(group)))
	off += 2
	off += copy(buf[off:], group)
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(prev)))
	off += 2
	off += copy(buf[off:], prev)
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(m.Count))
	return snappy.Encode(nil, buf)
}

func decodeMeta(pageID viewcore.PageId, blob []byte) (viewcore.PageMeta, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return viewcore.PageMeta{}, fmt.Errorf("pagestore: decode meta: %w", err)
	}
	if len(raw) < 2 {
		return viewcore.PageMeta{}, fmt.Errorf("pagestore: decode meta: truncated")
	}
	off := 0
	gl := int(binary.LittleEndian.Uint16(raw[off : off+2]))
	off += 2
	if off+gl > len(raw) {
		return viewcore.PageMeta{}, fmt.Errorf("pagestore: decode meta: truncated group")
	}
	group := viewcore.Group(raw[off : off+gl])
	off += gl
	if off+2 > len(raw) {
		return viewcore.PageMeta{}, fmt.Errorf("pagestore: decode meta: truncated prev length")
	}
	pl := int(binary.LittleEndian.Uint16(raw[off : off+2]))
	off += 2
	if off+pl > len(raw) {
		return viewcore.PageMeta{}, fmt.Errorf("pagestore: decode meta: truncated prev")
	}
	prev := viewcore.PageId(raw[off : off+pl])
	off += pl
	if off+4 > len(raw) {
		return viewcore.PageMeta{}, fmt.Errorf("pagestore: decode meta: truncated count")
	}
	count := int(binary.LittleEndian.Uint32(raw[off : off+4]))
	return viewcore.PageMeta{
		PageID:     pageID,
		Group:      group,
		PrevPageID: prev,
		Count:      count,
	}, nil
}
