package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Snapshot payloads are framed lz4 blocks: 8-byte magic, 4-byte LE
// uint32 uncompressed size, then block data. Incompressible payloads
// (tiny snapshots) are stored raw under a second magic.
var (
	lz4Magic = []byte("lbkLz40\x00")
	rawMagic = []byte("lbkRaw0\x00")
)

const headerSize = 12 // 8 magic + 4 size

// Compress frames and lz4-block-compresses raw payload bytes.
func Compress(raw []byte) ([]byte, error) {
	buf := make([]byte, headerSize+lz4.CompressBlockBound(len(raw)))
	copy(buf, lz4Magic)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(raw)))

	var c lz4.Compressor
	n, err := c.CompressBlock(raw, buf[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible: store raw.
		copy(buf, rawMagic)
		return append(buf[:headerSize], raw...), nil
	}
	return buf[:headerSize+n], nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("payload too short (%d bytes)", len(data))
	}
	size := binary.LittleEndian.Uint32(data[8:12])

	if hasMagic(data, rawMagic) {
		if int(size) != len(data)-headerSize {
			return nil, fmt.Errorf("raw payload size mismatch")
		}
		return data[headerSize:], nil
	}
	if !hasMagic(data, lz4Magic) {
		return nil, fmt.Errorf("invalid payload magic")
	}

	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return dst[:n], nil
}

func hasMagic(data, magic []byte) bool {
	for i := range magic {
		if data[i] != magic[i] {
			return false
		}
	}
	return true
}
