package serializer

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned when a read would run past the end of the
// underlying buffer — always a schema mismatch between producer and
// consumer, since the format carries no self-describing length a reader
// could validate against ahead of time.
var ErrShortBuffer = errors.New("serializer: short buffer")

// Reader consumes a byte stream positionally, mirroring Stream's writers
// exactly. The producer and consumer must agree on the call sequence;
// nothing in the wire format lets a Reader detect a mismatched schema
// except running out of bytes.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for positional reads. b is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Raw reads n raw bytes.
func (r *Reader) Raw(n int) ([]byte, error) {
	return r.take(n)
}

func (r *Reader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Int32 reads a little-endian 32-bit signed integer.
func (r *Reader) Int32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Int64 reads a little-endian 64-bit signed integer.
func (r *Reader) Int64() (int64, error) {
	v, err := r.uint64()
	return int64(v), err
}

// Float32 reads a little-endian IEEE-754 single.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Int32()
	return math.Float32frombits(uint32(v)), err
}

// Float64 reads a little-endian IEEE-754 double.
func (r *Reader) Float64() (float64, error) {
	v, err := r.uint64()
	return math.Float64frombits(v), err
}

func (r *Reader) length() (int, error) {
	v, err := r.uint64()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// String reads a length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.length()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PluginRef reads a PluginRef: plugin then output.
func (r *Reader) PluginRef() (PluginRef, error) {
	plugin, err := r.String()
	if err != nil {
		return PluginRef{}, err
	}
	output, err := r.String()
	if err != nil {
		return PluginRef{}, err
	}
	return PluginRef{Plugin: plugin, Output: output}, nil
}

// ReadList reads a count-prefixed list, calling decode once per element in
// order. decode is responsible for consuming exactly one element's worth of
// bytes from r.
func ReadList[T any](r *Reader, decode func(r *Reader) (T, error)) ([]T, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// StringList reads a count-prefixed list of strings.
func (r *Reader) StringList() ([]string, error) {
	return ReadList(r, func(r *Reader) (string, error) { return r.String() })
}

// PluginRefList reads a count-prefixed list of PluginRefs.
func (r *Reader) PluginRefList() ([]PluginRef, error) {
	return ReadList(r, func(r *Reader) (PluginRef, error) { return r.PluginRef() })
}

// elementBlock reads a List<T> of contiguous elements: an element count
// prefix, then count*elemSize raw bytes.
func (r *Reader) elementBlock(elemSize int) ([]byte, error) {
	count, err := r.length()
	if err != nil {
		return nil, err
	}
	return r.take(count * elemSize)
}

// MapChannel reads one (key, vertices, faces, name) entry of a
// MapChannels bundle. vertexSize and faceSize are the caller-known byte
// sizes of one vertex/face element; the wire format carries only element
// counts, not element types.
func (r *Reader) MapChannel(vertexSize, faceSize int) (MapChannel, error) {
	key, err := r.String()
	if err != nil {
		return MapChannel{}, err
	}
	vertices, err := r.elementBlock(vertexSize)
	if err != nil {
		return MapChannel{}, err
	}
	faces, err := r.elementBlock(faceSize)
	if err != nil {
		return MapChannel{}, err
	}
	name, err := r.String()
	if err != nil {
		return MapChannel{}, err
	}
	return MapChannel{Key: key, Vertices: vertices, VertexSize: vertexSize, Faces: faces, FaceSize: faceSize, Name: name}, nil
}

// MapChannels reads a size-prefixed (32-bit signed) set of MapChannel
// entries.
func (r *Reader) MapChannels(vertexSize, faceSize int) ([]MapChannel, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, err
	}
	out := make([]MapChannel, 0, n)
	for i := int32(0); i < n; i++ {
		mc, err := r.MapChannel(vertexSize, faceSize)
		if err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, nil
}
