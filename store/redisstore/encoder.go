package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cignalottu/authcore/identity"
)

// Encoding selects the on-wire format of identity records.
type Encoding string

const (
	EncodingBinary  Encoding = "binary"
	EncodingMsgpack Encoding = "msgpack"
)

const (
	recordFormatBinaryV1 byte = 1
	recordFormatMsgpack  byte = 'M'

	flagPasswordHash byte = 1 << 0
	flagProviderID   byte = 1 << 1
)

var (
	errUnsupportedFormat = errors.New("unsupported identity record format")
	errFieldTooLong      = errors.New("identity field too long")
)

// Encode serializes ident using enc. The first byte identifies the format,
// so Decode accepts records written in either encoding.
func Encode(ident *identity.Identity, enc Encoding) ([]byte, error) {
	if enc == EncodingMsgpack {
		body, err := msgpack.Marshal(toWire(ident))
		if err != nil {
			return nil, err
		}
		return append([]byte{recordFormatMsgpack}, body...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(recordFormatBinaryV1)

	var flags byte
	if ident.PasswordHash != nil {
		flags |= flagPasswordHash
	}
	if ident.ProviderID != nil {
		flags |= flagProviderID
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, ident.ID); err != nil {
		return nil, err
	}

	fields := []string{ident.Email, ident.FirstName, ident.LastName, string(ident.Role), string(ident.Provider)}
	if ident.PasswordHash != nil {
		fields = append(fields, *ident.PasswordHash)
	}
	if ident.ProviderID != nil {
		fields = append(fields, *ident.ProviderID)
	}
	for _, f := range fields {
		if err := writeString(&buf, f); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, ident.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, ident.UpdatedAt.UnixNano()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*identity.Identity, error) {
	if len(data) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	switch data[0] {
	case recordFormatMsgpack:
		var w wireIdentity
		if err := msgpack.Unmarshal(data[1:], &w); err != nil {
			return nil, err
		}
		return w.toIdentity(), nil
	case recordFormatBinaryV1:
	default:
		return nil, fmt.Errorf("%w: %d", errUnsupportedFormat, data[0])
	}

	reader := bytes.NewReader(data[1:])
	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	ident := &identity.Identity{}
	if err := binary.Read(reader, binary.BigEndian, &ident.ID); err != nil {
		return nil, err
	}

	var role, provider string
	for _, dst := range []*string{&ident.Email, &ident.FirstName, &ident.LastName, &role, &provider} {
		if *dst, err = readString(reader); err != nil {
			return nil, err
		}
	}
	ident.Role = identity.Role(role)
	ident.Provider = identity.Provider(provider)

	if flags&flagPasswordHash != 0 {
		hash, err := readString(reader)
		if err != nil {
			return nil, err
		}
		ident.PasswordHash = &hash
	}
	if flags&flagProviderID != 0 {
		sub, err := readString(reader)
		if err != nil {
			return nil, err
		}
		ident.ProviderID = &sub
	}

	var created, updated int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &updated); err != nil {
		return nil, err
	}
	ident.CreatedAt = time.Unix(0, created).UTC()
	ident.UpdatedAt = time.Unix(0, updated).UTC()

	return ident, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 0xFFFF {
		return errFieldTooLong
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
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

type wireIdentity struct {
	ID           int64     `msgpack:"id"`
	Email        string    `msgpack:"email"`
	PasswordHash *string   `msgpack:"pwd,omitempty"`
	FirstName    string    `msgpack:"fn"`
	LastName     string    `msgpack:"ln"`
	Role         string    `msgpack:"role"`
	Provider     string    `msgpack:"prov"`
	ProviderID   *string   `msgpack:"sub,omitempty"`
	CreatedAt    time.Time `msgpack:"ca"`
	UpdatedAt    time.Time `msgpack:"ua"`
}

func toWire(i *identity.Identity) wireIdentity {
	return wireIdentity{
		ID:           i.ID,
		Email:        i.Email,
		PasswordHash: i.PasswordHash,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		Role:         string(i.Role),
		Provider:     string(i.Provider),
		ProviderID:   i.ProviderID,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func (w wireIdentity) toIdentity() *identity.Identity {
	return &identity.Identity{
		ID:           w.ID,
		Email:        w.Email,
		PasswordHash: w.PasswordHash,
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Role:         identity.Role(w.Role),
		Provider:     identity.Provider(w.Provider),
		ProviderID:   w.ProviderID,
		CreatedAt:    w.CreatedAt.UTC(),
		UpdatedAt:    w.UpdatedAt.UTC(),
	}
}
