// Package rlp implements a recursive-length-prefix codec in the same shape
// as go-ethereum's rlp package: types can opt out of the default
// reflection-based encoding by implementing Encoder/Decoder, and the
// stream-based Decode API supports the list/ListEnd/Bytes primitives used
// by this module's hand-rolled wire messages.
package rlp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"
)

var (
	ErrExpectedString = errors.New("rlp: expected string or byte")
	ErrExpectedList    = errors.New("rlp: expected list")
	ErrCanonSize       = errors.New("rlp: non-canonical size information")
	ErrElemTooLarge    = errors.New("rlp: element is larger than containing list")
	ErrNegativeBigInt  = errors.New("rlp: cannot encode negative big.Int")
)

// Encoder is implemented by types that know how to encode themselves.
type Encoder interface {
	EncodeRLP(io.Writer) error
}

// Decoder is implemented by types that know how to decode themselves from a
// Stream positioned at their encoding.
type Decoder interface {
	DecodeRLP(*Stream) error
}

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	b, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, reflect.ValueOf(val)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		return writeString(buf, nil)
	}
	if v.CanInterface() {
		if enc, ok := v.Interface().(Encoder); ok {
			return enc.EncodeRLP(buf)
		}
		if v.CanAddr() {
			if enc, ok := v.Addr().Interface().(Encoder); ok {
				return enc.EncodeRLP(buf)
			}
		}
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return writeString(buf, nil)
		}
		return encodeValue(buf, v.Elem())
	case reflect.Bool:
		if v.Bool() {
			return writeString(buf, []byte{1})
		}
		return writeString(buf, nil)
	case reflect.String:
		return writeString(buf, []byte(v.String()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return writeString(buf, uintBytes(v.Uint()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() < 0 {
			return ErrNegativeBigInt
		}
		return writeString(buf, uintBytes(uint64(v.Int())))
	case reflect.Slice, reflect.Array:
		if isByteSlice(v) {
			return writeString(buf, byteSliceOf(v))
		}
		var inner bytes.Buffer
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(&inner, v.Index(i)); err != nil {
				return err
			}
		}
		return writeList(buf, inner.Bytes())
	case reflect.Struct:
		if bi, ok := v.Interface().(big.Int); ok {
			return encodeBigInt(buf, &bi)
		}
		var inner bytes.Buffer
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).PkgPath != "" {
				continue // unexported
			}
			if err := encodeValue(&inner, v.Field(i)); err != nil {
				return err
			}
		}
		return writeList(buf, inner.Bytes())
	case reflect.Interface:
		return encodeValue(buf, v.Elem())
	default:
		return fmt.Errorf("rlp: unsupported type %s", v.Type())
	}
}

func encodeBigInt(buf *bytes.Buffer, bi *big.Int) error {
	if bi.Sign() < 0 {
		return ErrNegativeBigInt
	}
	return writeString(buf, bi.Bytes())
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 ||
		v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8
}

func byteSliceOf(v reflect.Value) []byte {
	if v.Kind() == reflect.Array {
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		return b
	}
	return v.Bytes()
}

func uintBytes(x uint64) []byte {
	if x == 0 {
		return nil
	}
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(x)
		x >>= 8
	}
	i := 0
	for i < 8 && b[i] == 0 {
		i++
	}
	return b[i:]
}

func writeString(buf *bytes.Buffer, s []byte) error {
	switch {
	case len(s) == 1 && s[0] < 0x80:
		buf.WriteByte(s[0])
	case len(s) < 56:
		buf.WriteByte(0x80 + byte(len(s)))
		buf.Write(s)
	default:
		writeLength(buf, 0xB7, len(s))
		buf.Write(s)
	}
	return nil
}

func writeList(buf *bytes.Buffer, content []byte) error {
	if len(content) < 56 {
		buf.WriteByte(0xC0 + byte(len(content)))
	} else {
		writeLength(buf, 0xF7, len(content))
	}
	buf.Write(content)
	return nil
}

func writeLength(buf *bytes.Buffer, offset byte, l int) {
	lb := uintBytes(uint64(l))
	buf.WriteByte(offset + byte(len(lb)))
	buf.Write(lb)
}

// --- decoding ---

// Stream parses RLP data from an underlying reader, exposing List/ListEnd/
// Bytes primitives alongside the reflection-based Decode.
type Stream struct {
	r       io.ByteReader
	pending *byte // one byte of lookahead pushed back by readHeader/atListEnd
	read    int   // count of bytes physically consumed from r so far
	ends    []int // read-count at which each open list (innermost last) ends
}

// NewStream returns a Stream that reads from r.
func NewStream(r io.Reader, inputLimit uint64) *Stream {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufReader{r}
	}
	return &Stream{r: br}
}

type bufReader struct{ io.Reader }

func (b bufReader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b, buf[:])
	return buf[0], err
}

// DecodeBytes parses data into val, erroring if trailing bytes remain.
func DecodeBytes(data []byte, val interface{}) error {
	s := NewStream(bytes.NewReader(data), 0)
	if err := s.Decode(val); err != nil {
		return err
	}
	if !s.atListEnd() {
		return errors.New("rlp: input contains more than one value")
	}
	return nil
}

// readHeader consumes the next value's header and returns whether it is a
// list and its content size. A single byte below 0x80 is its own content:
// it is pushed back so the caller reads it as that content.
func (s *Stream) readHeader() (isList bool, size uint64, err error) {
	b, err := s.readByte()
	if err != nil {
		return false, 0, err
	}
	switch {
	case b < 0x80:
		return false, 1, s.unreadByte(b)
	case b < 0xB8:
		return false, uint64(b - 0x80), nil
	case b < 0xC0:
		n := int(b - 0xB7)
		size, err = s.readSize(n)
		return false, size, err
	case b < 0xF8:
		return true, uint64(b - 0xC0), nil
	default:
		n := int(b - 0xF7)
		size, err = s.readSize(n)
		return true, size, err
	}
}

func (s *Stream) unreadByte(b byte) error {
	s.pending = &b
	return nil
}

func (s *Stream) readSize(n int) (uint64, error) {
	var x uint64
	for i := 0; i < n; i++ {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		x = x<<8 | uint64(b)
	}
	return x, nil
}

// readByte returns the next physical byte, consuming the single-byte
// lookahead left by readHeader/atListEnd first if one is pending. Every
// byte returned here — pending or freshly read — has already been counted
// in s.read exactly once, so callers can compare s.read against an open
// list's recorded end to find the list's true boundary regardless of what
// follows it in the stream (see List/ListEnd/atListEnd).
func (s *Stream) readByte() (byte, error) {
	if s.pending != nil {
		b := *s.pending
		s.pending = nil
		return b, nil
	}
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.read++
	return b, nil
}

// List enters a list value, returning its declared content size.
func (s *Stream) List() (size uint64, err error) {
	isList, size, err := s.readHeader()
	if err != nil {
		return 0, err
	}
	if !isList {
		return 0, ErrExpectedList
	}
	s.ends = append(s.ends, s.read+int(size))
	return size, nil
}

// ListEnd leaves the current list context, skipping over any trailing
// fields the caller chose not to decode (forward-compatible with messages
// that grow new fields).
func (s *Stream) ListEnd() error {
	if len(s.ends) == 0 {
		return errors.New("rlp: ListEnd called outside of list")
	}
	end := s.ends[len(s.ends)-1]
	s.ends = s.ends[:len(s.ends)-1]
	for s.read < end {
		if _, err := s.readByte(); err != nil {
			return err
		}
	}
	if s.read > end {
		return ErrElemTooLarge
	}
	return nil
}

// Bytes reads a string value.
func (s *Stream) Bytes() ([]byte, error) {
	isList, size, err := s.readHeader()
	if err != nil {
		return nil, err
	}
	if isList {
		return nil, ErrExpectedString
	}
	buf := make([]byte, size)
	for i := range buf {
		b, err := s.readByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// Decode reads the next value into val using either its Decoder
// implementation or, failing that, a reflection-based struct/slice/scalar
// decode.
func (s *Stream) Decode(val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("rlp: Decode requires non-nil pointer")
	}
	return s.decodeValue(rv.Elem())
}

func (s *Stream) decodeValue(v reflect.Value) error {
	if v.CanAddr() {
		if dec, ok := v.Addr().Interface().(Decoder); ok {
			return dec.DecodeRLP(s)
		}
	}
	switch v.Kind() {
	case reflect.Ptr:
		elem := reflect.New(v.Type().Elem())
		if err := s.decodeValue(elem.Elem()); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	case reflect.Bool:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		v.SetBool(len(b) == 1 && b[0] == 1)
		return nil
	case reflect.String:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		v.SetString(string(b))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		var x uint64
		for _, c := range b {
			x = x<<8 | uint64(c)
		}
		v.SetUint(x)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		var x uint64
		for _, c := range b {
			x = x<<8 | uint64(c)
		}
		v.SetInt(int64(x))
		return nil
	case reflect.Slice, reflect.Array:
		if isByteSlice(v) {
			b, err := s.Bytes()
			if err != nil {
				return err
			}
			if v.Kind() == reflect.Array {
				reflect.Copy(v, reflect.ValueOf(b))
			} else {
				v.SetBytes(b)
			}
			return nil
		}
		if _, err := s.List(); err != nil {
			return err
		}
		var elems []reflect.Value
		for {
			if s.atListEnd() {
				break
			}
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := s.decodeValue(elem); err != nil {
				break
			}
			elems = append(elems, elem)
		}
		out := reflect.MakeSlice(v.Type(), len(elems), len(elems))
		for i, e := range elems {
			out.Index(i).Set(e)
		}
		if v.Kind() == reflect.Slice {
			v.Set(out)
		} else {
			reflect.Copy(v, out)
		}
		return s.ListEnd()
	case reflect.Struct:
		if _, err := s.List(); err != nil {
			return err
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).PkgPath != "" {
				continue
			}
			if err := s.decodeValue(v.Field(i)); err != nil {
				return err
			}
		}
		return s.ListEnd()
	case reflect.Interface:
		return fmt.Errorf("rlp: cannot decode into interface value")
	default:
		return fmt.Errorf("rlp: unsupported type %s", v.Type())
	}
}

// atListEnd reports whether the stream has reached the end of the
// innermost open list, by comparing bytes consumed so far against the end
// offset List recorded. Outside of any list (top-level decode of a
// repeated byte-slice stream) it falls back to a stream-EOF check.
func (s *Stream) atListEnd() bool {
	if len(s.ends) > 0 {
		return s.read >= s.ends[len(s.ends)-1]
	}
	b, err := s.readByte()
	if err != nil {
		return true
	}
	s.unreadByte(b)
	return false
}
