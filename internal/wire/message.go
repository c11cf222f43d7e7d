// Package wire implements dezap's framed, tagged-union wire encoding.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Tag identifies the variant carried by a Message.
type Tag byte

const (
	TagText Tag = iota + 1
	TagFileMeta
	TagFileChunk
	TagControl
	TagCiphertext
)

// ControlKind identifies the variant carried by a Control message.
type ControlKind byte

const (
	ControlHello ControlKind = iota + 1
	ControlFileOffer
	ControlFileAccept
	ControlFileReject
	ControlDenied
	ControlInfo
)

var ErrUnknownTag = errors.New("wire: unknown message tag")
var ErrUnknownControlKind = errors.New("wire: unknown control kind")

// Message is the tagged union of every payload dezap exchanges on a stream.
type Message struct {
	Tag        Tag
	Text       *Text
	FileMeta   *FileMeta
	FileChunk  *FileChunk
	Control    *Control
	Ciphertext *Ciphertext
}

type Text struct {
	ID        uint64
	Author    string
	Body      string
	Timestamp int64
}

type FileMeta struct {
	ID             uint64
	Name           string
	OriginalSize   uint64
	CompressedSize uint64
}

type FileChunk struct {
	ID     uint64
	Offset uint64
	Bytes  []byte
	Last   bool
}

type Ciphertext struct {
	Nonce [12]byte
	Body  []byte
}

type Control struct {
	Kind ControlKind

	Hello      *Hello
	FileOffer  *FileOffer
	FileAccept *FileAccept
	FileReject *FileReject
	Denied     *Denied
	Info       *Info
}

type Hello struct {
	Username  string
	Password  *string
	PublicKey [32]byte
}

type FileOffer struct {
	ID             uint64
	Name           string
	OriginalSize   uint64
	CompressedSize uint64
}

type FileAccept struct {
	ID uint64
}

type FileReject struct {
	ID     uint64
	Reason *string
}

type Denied struct {
	Reason string
}

type Info struct {
	Text string
}

// NewText builds a Message wrapping a Text payload.
func NewText(t Text) Message { return Message{Tag: TagText, Text: &t} }

// NewFileMeta builds a Message wrapping a FileMeta payload.
func NewFileMeta(m FileMeta) Message { return Message{Tag: TagFileMeta, FileMeta: &m} }

// NewFileChunk builds a Message wrapping a FileChunk payload.
func NewFileChunk(c FileChunk) Message { return Message{Tag: TagFileChunk, FileChunk: &c} }

// NewCiphertext builds a Message wrapping a Ciphertext payload.
func NewCiphertext(c Ciphertext) Message { return Message{Tag: TagCiphertext, Ciphertext: &c} }

// NewControl builds a Message wrapping a Control payload.
func NewControl(c Control) Message { return Message{Tag: TagControl, Control: &c} }

func putString(buf []byte, s string) []byte {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(s)))
	buf = append(buf, lenBuf...)
	return append(buf, s...)
}

func putBytes(buf []byte, b []byte) []byte {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(b)))
	buf = append(buf, lenBuf...)
	return append(buf, b...)
}

func putU64(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return append(buf, b...)
}

func putBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func putOptionalString(buf []byte, s *string) []byte {
	if s == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return putString(buf, *s)
}

type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) takeString() (string, error) {
	n, err := c.takeU32()
	if err != nil {
		return "", err
	}
	if c.pos+int(n) > len(c.data) {
		return "", fmt.Errorf("wire: truncated string field")
	}
	s := string(c.data[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return s, nil
}

func (c *cursor) takeBytes() ([]byte, error) {
	n, err := c.takeU32()
	if err != nil {
		return nil, err
	}
	if c.pos+int(n) > len(c.data) {
		return nil, fmt.Errorf("wire: truncated bytes field")
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, c.data[c.pos:c.pos+int(n)])
	c.pos += int(n)
	return out, nil
}

func (c *cursor) takeU32() (uint32, error) {
	if c.pos+4 > len(c.data) {
		return 0, fmt.Errorf("wire: truncated length prefix")
	}
	v := binary.BigEndian.Uint32(c.data[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

func (c *cursor) takeU64() (uint64, error) {
	if c.pos+8 > len(c.data) {
		return 0, fmt.Errorf("wire: truncated u64 field")
	}
	v := binary.BigEndian.Uint64(c.data[c.pos : c.pos+8])
	c.pos += 8
	return v, nil
}

func (c *cursor) takeByte() (byte, error) {
	if c.pos+1 > len(c.data) {
		return 0, fmt.Errorf("wire: truncated byte field")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) takeBool() (bool, error) {
	b, err := c.takeByte()
	return b != 0, err
}

func (c *cursor) takeFixed(n int) ([]byte, error) {
	if c.pos+n > len(c.data) {
		return nil, fmt.Errorf("wire: truncated fixed field")
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) takeOptionalString() (*string, error) {
	present, err := c.takeByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	s, err := c.takeString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode produces the self-describing binary encoding of m.
func Encode(m Message) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(m.Tag))

	switch m.Tag {
	case TagText:
		if m.Text == nil {
			return nil, fmt.Errorf("wire: Text tag without payload")
		}
		buf = putU64(buf, m.Text.ID)
		buf = putString(buf, m.Text.Author)
		buf = putString(buf, m.Text.Body)
		buf = putU64(buf, uint64(m.Text.Timestamp))
	case TagFileMeta:
		if m.FileMeta == nil {
			return nil, fmt.Errorf("wire: FileMeta tag without payload")
		}
		buf = putU64(buf, m.FileMeta.ID)
		buf = putString(buf, m.FileMeta.Name)
		buf = putU64(buf, m.FileMeta.OriginalSize)
		buf = putU64(buf, m.FileMeta.CompressedSize)
	case TagFileChunk:
		if m.FileChunk == nil {
			return nil, fmt.Errorf("wire: FileChunk tag without payload")
		}
		buf = putU64(buf, m.FileChunk.ID)
		buf = putU64(buf, m.FileChunk.Offset)
		buf = putBytes(buf, m.FileChunk.Bytes)
		buf = putBool(buf, m.FileChunk.Last)
	case TagCiphertext:
		if m.Ciphertext == nil {
			return nil, fmt.Errorf("wire: Ciphertext tag without payload")
		}
		buf = append(buf, m.Ciphertext.Nonce[:]...)
		buf = putBytes(buf, m.Ciphertext.Body)
	case TagControl:
		if m.Control == nil {
			return nil, fmt.Errorf("wire: Control tag without payload")
		}
		encoded, err := encodeControl(*m.Control)
		if err != nil {
			return nil, err
		}
		buf = append(buf, encoded...)
	default:
		return nil, ErrUnknownTag
	}

	return buf, nil
}

func encodeControl(c Control) ([]byte, error) {
	buf := []byte{byte(c.Kind)}
	switch c.Kind {
	case ControlHello:
		if c.Hello == nil {
			return nil, fmt.Errorf("wire: Hello control without payload")
		}
		buf = putString(buf, c.Hello.Username)
		buf = putOptionalString(buf, c.Hello.Password)
		buf = append(buf, c.Hello.PublicKey[:]...)
	case ControlFileOffer:
		if c.FileOffer == nil {
			return nil, fmt.Errorf("wire: FileOffer control without payload")
		}
		buf = putU64(buf, c.FileOffer.ID)
		buf = putString(buf, c.FileOffer.Name)
		buf = putU64(buf, c.FileOffer.OriginalSize)
		buf = putU64(buf, c.FileOffer.CompressedSize)
	case ControlFileAccept:
		if c.FileAccept == nil {
			return nil, fmt.Errorf("wire: FileAccept control without payload")
		}
		buf = putU64(buf, c.FileAccept.ID)
	case ControlFileReject:
		if c.FileReject == nil {
			return nil, fmt.Errorf("wire: FileReject control without payload")
		}
		buf = putU64(buf, c.FileReject.ID)
		buf = putOptionalString(buf, c.FileReject.Reason)
	case ControlDenied:
		if c.Denied == nil {
			return nil, fmt.Errorf("wire: Denied control without payload")
		}
		buf = putString(buf, c.Denied.Reason)
	case ControlInfo:
		if c.Info == nil {
			return nil, fmt.Errorf("wire: Info control without payload")
		}
		buf = putString(buf, c.Info.Text)
	default:
		return nil, ErrUnknownControlKind
	}
	return buf, nil
}

// Decode parses the self-describing binary encoding produced by Encode.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, fmt.Errorf("wire: empty payload")
	}
	c := &cursor{data: data, pos: 1}
	tag := Tag(data[0])

	switch tag {
	case TagText:
		id, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		author, err := c.takeString()
		if err != nil {
			return Message{}, err
		}
		body, err := c.takeString()
		if err != nil {
			return Message{}, err
		}
		ts, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		return NewText(Text{ID: id, Author: author, Body: body, Timestamp: int64(ts)}), nil

	case TagFileMeta:
		id, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		name, err := c.takeString()
		if err != nil {
			return Message{}, err
		}
		orig, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		compressed, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		return NewFileMeta(FileMeta{ID: id, Name: name, OriginalSize: orig, CompressedSize: compressed}), nil

	case TagFileChunk:
		id, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		offset, err := c.takeU64()
		if err != nil {
			return Message{}, err
		}
		b, err := c.takeBytes()
		if err != nil {
			return Message{}, err
		}
		last, err := c.takeBool()
		if err != nil {
			return Message{}, err
		}
		return NewFileChunk(FileChunk{ID: id, Offset: offset, Bytes: b, Last: last}), nil

	case TagCiphertext:
		nonce, err := c.takeFixed(12)
		if err != nil {
			return Message{}, err
		}
		body, err := c.takeBytes()
		if err != nil {
			return Message{}, err
		}
		var ct Ciphertext
		copy(ct.Nonce[:], nonce)
		ct.Body = body
		return NewCiphertext(ct), nil

	case TagControl:
		ctrl, err := decodeControl(c)
		if err != nil {
			return Message{}, err
		}
		return NewControl(ctrl), nil

	default:
		return Message{}, ErrUnknownTag
	}
}

func decodeControl(c *cursor) (Control, error) {
	kindByte, err := c.takeByte()
	if err != nil {
		return Control{}, err
	}
	kind := ControlKind(kindByte)

	switch kind {
	case ControlHello:
		username, err := c.takeString()
		if err != nil {
			return Control{}, err
		}
		password, err := c.takeOptionalString()
		if err != nil {
			return Control{}, err
		}
		pub, err := c.takeFixed(32)
		if err != nil {
			return Control{}, err
		}
		var pk [32]byte
		copy(pk[:], pub)
		return Control{Kind: kind, Hello: &Hello{Username: username, Password: password, PublicKey: pk}}, nil

	case ControlFileOffer:
		id, err := c.takeU64()
		if err != nil {
			return Control{}, err
		}
		name, err := c.takeString()
		if err != nil {
			return Control{}, err
		}
		orig, err := c.takeU64()
		if err != nil {
			return Control{}, err
		}
		compressed, err := c.takeU64()
		if err != nil {
			return Control{}, err
		}
		return Control{Kind: kind, FileOffer: &FileOffer{ID: id, Name: name, OriginalSize: orig, CompressedSize: compressed}}, nil

	case ControlFileAccept:
		id, err := c.takeU64()
		if err != nil {
			return Control{}, err
		}
		return Control{Kind: kind, FileAccept: &FileAccept{ID: id}}, nil

	case ControlFileReject:
		id, err := c.takeU64()
		if err != nil {
			return Control{}, err
		}
		reason, err := c.takeOptionalString()
		if err != nil {
			return Control{}, err
		}
		return Control{Kind: kind, FileReject: &FileReject{ID: id, Reason: reason}}, nil

	case ControlDenied:
		reason, err := c.takeString()
		if err != nil {
			return Control{}, err
		}
		return Control{Kind: kind, Denied: &Denied{Reason: reason}}, nil

	case ControlInfo:
		text, err := c.takeString()
		if err != nil {
			return Control{}, err
		}
		return Control{Kind: kind, Info: &Info{Text: text}}, nil

	default:
		return Control{}, ErrUnknownControlKind
	}
}
