package entry

import (
	"encoding/binary"
	"errors"
	"io"
)

// Frame:
// [type:1][seq:8][time:8][len:4][payload][crc:4]
const headerSize = 1 + 8 + 8 + 4

var ErrCorrupt = errors.New("journal: crc mismatch")

// appendFrame appends the encoded frame of r to dst.
func appendFrame(dst []byte, r *Record) []byte {
	payloadLen := uint32(len(r.Data))
	start := len(dst)

	var header [headerSize]byte
	header[0] = byte(r.Type)
	binary.BigEndian.PutUint64(header[1:9], r.Seq)
	binary.BigEndian.PutUint64(header[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(header[17:21], payloadLen)

	dst = append(dst, header[:]...)
	dst = append(dst, r.Data...)
	return binary.BigEndian.AppendUint32(dst, CRC32(dst[start:]))
}

// readFrame returns io.EOF at a clean end of input and
// io.ErrUnexpectedEOF when the last frame was cut short.
func readFrame(r io.Reader) (*Record, int64, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, 0, err
	}

	l := binary.BigEndian.Uint32(header[17:21])
	data := make([]byte, l+4)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, 0, err
	}

	payload := data[:l]
	crc := binary.BigEndian.Uint32(data[l:])
	if !CRC32Valid(append(header, payload...), crc) {
		return nil, 0, ErrCorrupt
	}

	return &Record{
		Type: RecordType(header[0]),
		Seq:  binary.BigEndian.Uint64(header[1:9]),
		Time: int64(binary.BigEndian.Uint64(header[9:17])),
		Data: payload,
	}, int64(headerSize) + int64(l) + 4, nil
}
