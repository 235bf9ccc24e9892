package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"main/internal/schema"
)

const (
	frameHeaderSize   = 40
	frameChecksumSize = 4
)

var (
	frameMagic = [4]byte{'J', 'N', 'L', '1'}
	crcTable   = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic           = errors.New("journal invalid magic")
	ErrUnsupportedFrameVer    = errors.New("journal unsupported frame version")
	ErrInvalidFrameHeaderSize = errors.New("journal invalid header size")
)

func encodeFrameHeader(dst []byte, header schema.FrameHeader, payloadLen int) {
	_ = dst[frameHeaderSize-1]
	copy(dst[0:4], frameMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], schema.JournalVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(frameHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Kind))
	binary.LittleEndian.PutUint16(dst[10:12], header.Origin)
	binary.LittleEndian.PutUint16(dst[12:14], header.Flags)
	binary.LittleEndian.PutUint16(dst[14:16], 0)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[20:28], header.Seq)
	binary.LittleEndian.PutUint64(dst[28:36], uint64(header.RecvTime))
	binary.LittleEndian.PutUint32(dst[36:40], 0)
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func putChecksum(dst []byte, crc uint32) {
	binary.LittleEndian.PutUint32(dst, crc)
}

func getChecksum(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

func decodeFrameHeader(src []byte) (schema.FrameHeader, uint32, error) {
	if len(src) < frameHeaderSize {
		return schema.FrameHeader{}, 0, ErrInvalidFrameHeaderSize
	}
	if !bytes.Equal(src[0:4], frameMagic[:]) {
		return schema.FrameHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != schema.JournalVersion {
		return schema.FrameHeader{}, 0, ErrUnsupportedFrameVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != frameHeaderSize {
		return schema.FrameHeader{}, 0, ErrInvalidFrameHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[16:20])
	h := schema.FrameHeader{
		Kind:     schema.FrameKind(binary.LittleEndian.Uint16(src[8:10])),
		Version:  binary.LittleEndian.Uint16(src[4:6]),
		Origin:   binary.LittleEndian.Uint16(src[10:12]),
		Flags:    binary.LittleEndian.Uint16(src[12:14]),
		Seq:      binary.LittleEndian.Uint64(src[20:28]),
		RecvTime: int64(binary.LittleEndian.Uint64(src[28:36])),
	}
	return h, payloadLen, nil
}
