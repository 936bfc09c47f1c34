package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/wire"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of an encoded record.
const (
	fieldClient     protowire.Number = 1
	fieldObject     protowire.Number = 2
	fieldGeneration protowire.Number = 3
	fieldInterface  protowire.Number = 4
	fieldOpcode     protowire.Number = 5
	fieldEvent      protowire.Number = 6
	fieldSignature  protowire.Number = 7
	fieldArgs       protowire.Number = 8
)

// maxRecordSize bounds a single framed record.
const maxRecordSize = 1 << 20

// Marshal encodes rec as a protobuf-wire message.
func Marshal(rec Record) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldClient, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Object.Client))
	b = protowire.AppendTag(b, fieldObject, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Object.Protocol))
	b = protowire.AppendTag(b, fieldGeneration, protowire.VarintType)
	b = protowire.AppendVarint(b, rec.Object.Generation)
	b = protowire.AppendTag(b, fieldInterface, protowire.BytesType)
	b = protowire.AppendString(b, rec.Interface)
	b = protowire.AppendTag(b, fieldOpcode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Opcode))
	b = protowire.AppendTag(b, fieldEvent, protowire.BytesType)
	b = protowire.AppendString(b, rec.Event)
	b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
	b = protowire.AppendString(b, rec.Signature)
	b = protowire.AppendTag(b, fieldArgs, protowire.BytesType)
	b = protowire.AppendBytes(b, rec.raw)
	return b
}

// Unmarshal decodes a record produced by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (Record, error) {
	var (
		rec Record
		raw []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, fmt.Errorf("trace: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && isVarintField(num):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Record{}, fmt.Errorf("trace: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldClient:
				rec.Object.Client = resource.ClientID(v)
			case fieldObject:
				rec.Object.Protocol = uint32(v)
			case fieldGeneration:
				rec.Object.Generation = v
			case fieldOpcode:
				rec.Opcode = uint16(v)
			}
		case typ == protowire.BytesType && isBytesField(num):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, fmt.Errorf("trace: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldInterface:
				rec.Interface = string(v)
			case fieldEvent:
				rec.Event = string(v)
			case fieldSignature:
				rec.Signature = string(v)
			case fieldArgs:
				raw = append([]byte(nil), v...)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Record{}, fmt.Errorf("trace: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	msg := wire.NewMessageFromArgs(rec.Object.Protocol, rec.Opcode, raw)
	args, err := msg.Decode(rec.Signature)
	if err != nil {
		return Record{}, fmt.Errorf("trace: decoding %s.%s arguments: %w", rec.Interface, rec.Event, err)
	}
	rec.Args = args
	rec.raw = raw
	return rec, nil
}

func isVarintField(num protowire.Number) bool {
	switch num {
	case fieldClient, fieldObject, fieldGeneration, fieldOpcode:
		return true
	}
	return false
}

func isBytesField(num protowire.Number) bool {
	switch num {
	case fieldInterface, fieldEvent, fieldSignature, fieldArgs:
		return true
	}
	return false
}

// WriteRecord writes rec with a 4 byte big-endian length prefix. The frame
// goes out in a single Write so recorders may share one writer.
func WriteRecord(w io.Writer, rec Record) error {
	data := Marshal(rec)

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// ReadRecord reads one framed record. It returns io.EOF at a clean end of stream.
func ReadRecord(r io.Reader) (Record, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return Record{}, err
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxRecordSize {
		return Record{}, fmt.Errorf("trace: record of %d bytes exceeds limit", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return Record{}, fmt.Errorf("trace: truncated record: %w", err)
	}
	return Unmarshal(data)
}

// ReadAll reads records until the end of r.
func ReadAll(r io.Reader) ([]Record, error) {
	var out []Record
	for {
		rec, err := ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
