package msg

import (
	"encoding/binary"
	"fmt"

	"github.com/sambigeara/ddsgraph/pkg/types"
)

// Codec converts announcements to and from their wire form. The cache
// itself never serializes; hosts pick a codec at the transport
// boundary.
type Codec interface {
	Encode(info ParticipantEntitiesInfo) ([]byte, error)
	Decode(data []byte) (ParticipantEntitiesInfo, error)
}

// BinaryCodec frames announcements as big-endian length-prefixed
// records: strings are uint32-length-prefixed UTF-8, gid sequences are
// uint32-count-prefixed fixed-width records.
type BinaryCodec struct{}

func (BinaryCodec) Encode(info ParticipantEntitiesInfo) ([]byte, error) {
	buf := make([]byte, 0, encodedSize(info))
	buf = append(buf, info.Gid[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(info.NodeEntitiesInfoSeq)))
	for _, n := range info.NodeEntitiesInfoSeq {
		buf = appendString(buf, n.NodeNamespace)
		buf = appendString(buf, n.NodeName)
		buf = appendGids(buf, n.ReaderGidSeq)
		buf = appendGids(buf, n.WriterGidSeq)
	}
	return buf, nil
}

func (BinaryCodec) Decode(data []byte) (ParticipantEntitiesInfo, error) {
	d := decoder{buf: data}

	var info ParticipantEntitiesInfo
	gid, err := d.gid()
	if err != nil {
		return ParticipantEntitiesInfo{}, err
	}
	info.Gid = gid

	count, err := d.count()
	if err != nil {
		return ParticipantEntitiesInfo{}, err
	}
	for range count {
		var n NodeEntitiesInfo
		if n.NodeNamespace, err = d.string(); err != nil {
			return ParticipantEntitiesInfo{}, err
		}
		if n.NodeName, err = d.string(); err != nil {
			return ParticipantEntitiesInfo{}, err
		}
		if n.ReaderGidSeq, err = d.gids(); err != nil {
			return ParticipantEntitiesInfo{}, err
		}
		if n.WriterGidSeq, err = d.gids(); err != nil {
			return ParticipantEntitiesInfo{}, err
		}
		info.NodeEntitiesInfoSeq = append(info.NodeEntitiesInfoSeq, n)
	}

	if len(d.buf) != d.off {
		return ParticipantEntitiesInfo{}, fmt.Errorf("announcement frame has %d trailing bytes", len(d.buf)-d.off)
	}
	return info, nil
}

func encodedSize(info ParticipantEntitiesInfo) int {
	size := types.GidSize + 4
	for _, n := range info.NodeEntitiesInfoSeq {
		size += 4 + len(n.NodeNamespace)
		size += 4 + len(n.NodeName)
		size += 4 + len(n.ReaderGidSeq)*types.GidSize
		size += 4 + len(n.WriterGidSeq)*types.GidSize
	}
	return size
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendGids(buf []byte, gids []types.Gid) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(gids)))
	for _, g := range gids {
		buf = append(buf, g[:]...)
	}
	return buf
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) take(n int) ([]byte, error) {
	if len(d.buf)-d.off < n {
		return nil, fmt.Errorf("announcement frame too short: need %d bytes at offset %d, have %d", n, d.off, len(d.buf)-d.off)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) count() (int, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(b)
	// A count can never describe more bytes than remain in the frame.
	if int64(n) > int64(len(d.buf)-d.off) {
		return 0, fmt.Errorf("announcement frame declares %d elements with %d bytes left", n, len(d.buf)-d.off)
	}
	return int(n), nil
}

func (d *decoder) string() (string, error) {
	n, err := d.count()
	if err != nil {
		return "", err
	}
	b, err := d.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) gid() (types.Gid, error) {
	b, err := d.take(types.GidSize)
	if err != nil {
		return types.Gid{}, err
	}
	return types.GidFromBytes(b), nil
}

func (d *decoder) gids() ([]types.Gid, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	var gids []types.Gid
	for range n {
		g, err := d.gid()
		if err != nil {
			return nil, err
		}
		gids = append(gids, g)
	}
	return gids, nil
}
