package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

var ErrShortBuffer = errors.New("buffer too short")

// Buffer is a little-endian byte stream. Reads consume from the front,
// writes append to the back.
type Buffer []byte

func (p *Buffer) Read(n []byte) (int, error) {
	if len(*p) == 0 && len(n) > 0 {
		return 0, ErrShortBuffer
	}
	numRead := copy(n, *p)
	*p = (*p)[numRead:]
	return numRead, nil
}

func (p *Buffer) Write(data []byte) (int, error) {
	*p = append(*p, data...)
	return len(data), nil
}

// Get reads fixed-size values with encoding/binary.
func (p *Buffer) Get(pieces ...interface{}) error {
	for _, piece := range pieces {
		err := binary.Read(p, binary.LittleEndian, piece)
		if err != nil {
			return err
		}
	}
	return nil
}

// Put writes fixed-size values with encoding/binary.
func (p *Buffer) Put(pieces ...interface{}) error {
	var buffer bytes.Buffer
	for _, piece := range pieces {
		err := binary.Write(&buffer, binary.LittleEndian, piece)
		if err != nil {
			return err
		}
	}
	*p = append(*p, buffer.Bytes()...)
	return nil
}

func (p *Buffer) Len() int {
	return len(*p)
}

func (p *Buffer) Skip(n int) bool {
	if n > len(*p) {
		return false
	}
	*p = (*p)[n:]
	return true
}

func (p *Buffer) GetBytes(n int) ([]byte, bool) {
	if n < 0 || n > len(*p) {
		return nil, false
	}
	b := make([]byte, n)
	copy(b, (*p)[:n])
	*p = (*p)[n:]
	return b, true
}

func (p *Buffer) GetByte() (byte, bool) {
	if len(*p) < 1 {
		return 0, false
	}
	value := (*p)[0]
	*p = (*p)[1:]
	return value, true
}

func (p *Buffer) GetUint16() (uint16, bool) {
	if len(*p) < 2 {
		return 0, false
	}
	value := binary.LittleEndian.Uint16(*p)
	*p = (*p)[2:]
	return value, true
}

func (p *Buffer) GetInt16() (int16, bool) {
	value, ok := p.GetUint16()
	return int16(value), ok
}

func (p *Buffer) GetUint32() (uint32, bool) {
	if len(*p) < 4 {
		return 0, false
	}
	value := binary.LittleEndian.Uint32(*p)
	*p = (*p)[4:]
	return value, true
}

func (p *Buffer) GetInt32() (int32, bool) {
	value, ok := p.GetUint32()
	return int32(value), ok
}

func (p *Buffer) GetUint64() (uint64, bool) {
	if len(*p) < 8 {
		return 0, false
	}
	value := binary.LittleEndian.Uint64(*p)
	*p = (*p)[8:]
	return value, true
}

func (p *Buffer) GetFloat() (float32, bool) {
	value, ok := p.GetUint32()
	return math.Float32frombits(value), ok
}

func (p *Buffer) GetBool() (bool, bool) {
	value, ok := p.GetByte()
	return value != 0, ok
}

// GetString reads a string prefixed by its u16 length.
func (p *Buffer) GetString() (string, bool) {
	length, ok := p.GetUint16()
	if !ok {
		return "", false
	}
	value, ok := p.GetBytes(int(length))
	if !ok {
		return "", false
	}
	return string(value), true
}

func (p *Buffer) PutByte(value byte) {
	*p = append(*p, value)
}

func (p *Buffer) PutUint16(value uint16) {
	*p = binary.LittleEndian.AppendUint16(*p, value)
}

func (p *Buffer) PutInt16(value int16) {
	p.PutUint16(uint16(value))
}

func (p *Buffer) PutUint32(value uint32) {
	*p = binary.LittleEndian.AppendUint32(*p, value)
}

func (p *Buffer) PutInt32(value int32) {
	p.PutUint32(uint32(value))
}

func (p *Buffer) PutUint64(value uint64) {
	*p = binary.LittleEndian.AppendUint64(*p, value)
}

func (p *Buffer) PutFloat(value float32) {
	p.PutUint32(math.Float32bits(value))
}

func (p *Buffer) PutBool(value bool) {
	if value {
		p.PutByte(1)
	} else {
		p.PutByte(0)
	}
}

// PutString writes value prefixed by its u16 length. Longer strings are
// truncated.
func (p *Buffer) PutString(value string) {
	if len(value) > math.MaxUint16 {
		value = value[:math.MaxUint16]
	}
	p.PutUint16(uint16(len(value)))
	*p = append(*p, value...)
}
