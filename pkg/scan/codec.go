package scan

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/matzehuels/depclean/pkg/cache"
)

// Persisted entries start with a one-byte format tag and the uncompressed
// length as a little-endian uint32.
const (
	formatRaw byte = 0
	formatLZ4 byte = 1

	headerSize = 5
)

func encodeAnalysis(a *FileAnalysis) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, headerSize+lz4.CompressBlockBound(len(raw)))
	binary.LittleEndian.PutUint32(buf[1:headerSize], uint32(len(raw)))

	n, err := lz4.CompressBlock(raw, buf[headerSize:], nil)
	if err != nil || n == 0 {
		// Incompressible input.
		buf[0] = formatRaw
		return append(buf[:headerSize], raw...), nil
	}
	buf[0] = formatLZ4
	return buf[:headerSize+n], nil
}

func decodeAnalysis(data []byte) (*FileAnalysis, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short entry", cache.ErrCorrupt)
	}
	size := int(binary.LittleEndian.Uint32(data[1:headerSize]))
	payload := data[headerSize:]

	var raw []byte
	switch data[0] {
	case formatRaw:
		raw = payload
	case formatLZ4:
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cache.ErrCorrupt, err)
		}
		raw = raw[:n]
	default:
		return nil, fmt.Errorf("%w: unknown format %d", cache.ErrCorrupt, data[0])
	}
	if len(raw) != size {
		return nil, fmt.Errorf("%w: length %d, want %d", cache.ErrCorrupt, len(raw), size)
	}

	var a FileAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrCorrupt, err)
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: missing path", cache.ErrCorrupt)
	}
	return &a, nil
}
