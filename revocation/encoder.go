package revocation

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const entryFormatVersion = 1

// Encode serializes an entry as:
//
//	version(1) | len(sid)(2) sid | len(subject)(2) subject | revokedAt(8) | expiresAt(8)
//
// Lengths and timestamps are big-endian.
func Encode(e Entry) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(5 + len(e.SessionID) + len(e.Subject) + 16)

	buf.WriteByte(entryFormatVersion)
	writeString(&buf, e.SessionID)
	writeString(&buf, e.Subject)

	var ts [16]byte
	binary.BigEndian.PutUint64(ts[:8], uint64(e.RevokedAt))
	binary.BigEndian.PutUint64(ts[8:], uint64(e.ExpiresAt))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses an entry written by Encode.
func Decode(data []byte) (Entry, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Entry{}, err
	}
	if version != entryFormatVersion {
		return Entry{}, errors.New("invalid revocation entry version")
	}

	var e Entry
	if e.SessionID, err = readString(reader); err != nil {
		return Entry{}, err
	}
	if e.Subject, err = readString(reader); err != nil {
		return Entry{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &e.RevokedAt); err != nil {
		return Entry{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &e.ExpiresAt); err != nil {
		return Entry{}, err
	}
	if reader.Len() != 0 {
		return Entry{}, errors.New("trailing bytes in revocation entry")
	}

	return e, nil
}

func writeString(buf *bytes.Buffer, s string) {
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
