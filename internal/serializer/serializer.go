// Package serializer turns the typed application values an Exporter ships
// (primitives, strings, plugin references, instancer items, image blobs,
// channel maps) into a flat, append-only byte stream.
//
// The stream carries no type tags, versions, or offsets: a consumer
// reconstructs values positionally, by calling the matching reader in the
// same order the writer was called. This mirrors the original
// SerializerStream this package is modeled on; see DESIGN.md for the
// length-prefix width decision (always an explicit uint64, never a
// GOARCH-dependent platform word).
package serializer

import (
	"encoding/binary"
	"math"
)

// Stream is a growable, append-only byte buffer. Once handed to a
// transport, the returned byte slice from Bytes must not be mutated; Stream
// itself is not safe for concurrent writers.
type Stream struct {
	buf []byte
}

// New returns an empty Stream.
func New() *Stream {
	return &Stream{}
}

// Bytes returns the accumulated buffer. The slice aliases Stream's internal
// storage; callers that need to keep writing to the Stream after reading
// Bytes should copy it first.
func (s *Stream) Bytes() []byte {
	return s.buf
}

// Len reports the number of bytes written so far.
func (s *Stream) Len() int {
	return len(s.buf)
}

// Raw appends data verbatim, with no framing metadata. Used for
// fixed-size scalars, vectors, matrices, colors, and other trivially
// copyable aggregates.
func (s *Stream) Raw(data []byte) {
	if len(data) == 0 {
		return
	}
	s.buf = append(s.buf, data...)
}

func (s *Stream) uint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	s.buf = append(s.buf, tmp[:]...)
}

// Int32 writes a little-endian 32-bit signed integer.
func (s *Stream) Int32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	s.buf = append(s.buf, tmp[:]...)
}

// Int64 writes a little-endian 64-bit signed integer.
func (s *Stream) Int64(v int64) {
	s.uint64(uint64(v))
}

// Float32 writes a little-endian IEEE-754 single.
func (s *Stream) Float32(v float32) {
	s.Int32(int32(math.Float32bits(v)))
}

// Float64 writes a little-endian IEEE-754 double.
func (s *Stream) Float64(v float64) {
	s.uint64(math.Float64bits(v))
}

// length writes the explicit, platform-independent length prefix used
// ahead of every String and List.
func (s *Stream) length(n int) {
	s.uint64(uint64(n))
}

// String writes a length-prefixed UTF-8 string: an explicit uint64 byte
// count, then exactly that many bytes. No terminator, no padding.
func (s *Stream) String(v string) {
	s.length(len(v))
	s.buf = append(s.buf, v...)
}

// PluginRef is a reference to a named output of a named plugin.
type PluginRef struct {
	Plugin string
	Output string
}

// WritePluginRef emits plugin then output, each as a String.
func (s *Stream) WritePluginRef(p PluginRef) {
	s.String(p.Plugin)
	s.String(p.Output)
}

// WriteList writes a count-prefixed list of trivially copyable elements
// whose binary encoding elemSize bytes. encode is called once per element,
// in order, and must emit exactly elemSize bytes.
func (s *Stream) WriteList(count int, elemSize int, encode func(i int, w *Stream)) {
	s.length(count)
	for i := 0; i < count; i++ {
		before := len(s.buf)
		encode(i, s)
		if got := len(s.buf) - before; got != elemSize {
			panic("serializer: WriteList element wrote unexpected size")
		}
	}
}

// WriteStringList writes a count-prefixed list of strings, each emitted via
// String (not a contiguous block, since strings aren't fixed width).
func (s *Stream) WriteStringList(items []string) {
	s.length(len(items))
	for _, v := range items {
		s.String(v)
	}
}

// WritePluginRefList writes a count-prefixed list of PluginRefs, each
// emitted via WritePluginRef.
func (s *Stream) WritePluginRefList(items []PluginRef) {
	s.length(len(items))
	for _, v := range items {
		s.WritePluginRef(v)
	}
}

// MapChannel is one entry of a MapChannels bundle: a named set of vertices
// and faces, keyed by channel name in the map but also carrying its own
// display Name field, per the wire format. Vertices and Faces are each a
// List<T> per the wire format: a contiguous pre-encoded block plus the
// size in bytes of one element (e.g. 12 for a 3-float vertex, or a
// 3-int32 face), so the element count written ahead of the block is the
// true List<T> count, not the block's byte length.
type MapChannel struct {
	Key        string
	Vertices   []byte // pre-encoded contiguous vertex data
	VertexSize int    // bytes per vertex element
	Faces      []byte // pre-encoded contiguous face data
	FaceSize   int    // bytes per face element
	Name       string
}

// WriteMapChannels emits a size-prefixed (32-bit signed) set of channels,
// each as key, vertices, faces, name.
func (s *Stream) WriteMapChannels(channels []MapChannel) {
	s.Int32(int32(len(channels)))
	for _, c := range channels {
		s.String(c.Key)
		s.writeElementBlock(c.Vertices, c.VertexSize)
		s.writeElementBlock(c.Faces, c.FaceSize)
		s.String(c.Name)
	}
}

// writeElementBlock writes a List<T> of contiguous, pre-encoded elements:
// the element count (not the byte length) as the prefix, then the raw
// bytes. data's length must be an exact multiple of elemSize.
func (s *Stream) writeElementBlock(data []byte, elemSize int) {
	if elemSize <= 0 {
		panic("serializer: element size must be positive")
	}
	if len(data)%elemSize != 0 {
		panic("serializer: element block length is not a multiple of its element size")
	}
	s.length(len(data) / elemSize)
	s.Raw(data)
}

// InstancerItem is one entry of an Instancer's data list.
type InstancerItem struct {
	Index     int32
	Transform []byte // fixed-size transform matrix, raw bytes
	Velocity  []byte // fixed-size velocity vector, raw bytes
	Node      PluginRef
}

// WriteInstancerItem emits index, transform, velocity, node in order.
func (s *Stream) WriteInstancerItem(item InstancerItem) {
	s.Int32(item.Index)
	s.Raw(item.Transform)
	s.Raw(item.Velocity)
	s.WritePluginRef(item.Node)
}

// WriteInstancer emits frameNumber, then a count-prefixed list of items.
func (s *Stream) WriteInstancer(frameNumber int32, items []InstancerItem) {
	s.Int32(frameNumber)
	s.length(len(items))
	for _, item := range items {
		s.WriteInstancerItem(item)
	}
}

// Image is a single raster buffer with its placement metadata.
type Image struct {
	ImageType int32
	Size      int32
	Width     int32
	Height    int32
	X         int32
	Y         int32
	Data      []byte // exactly Size bytes
}

// WriteImage emits the scalar fields, then exactly Size bytes of Data.
// The caller is responsible for Size matching len(Data); a mismatch here
// would silently desynchronize every reader after this image, so it is
// treated as a programmer error, not a recoverable one.
func (s *Stream) WriteImage(img Image) {
	if int(img.Size) != len(img.Data) {
		panic("serializer: Image.Size does not match len(Image.Data)")
	}
	s.Int32(img.ImageType)
	s.Int32(img.Size)
	s.Int32(img.Width)
	s.Int32(img.Height)
	s.Int32(img.X)
	s.Int32(img.Y)
	s.Raw(img.Data)
}

// ImageSet is a keyed collection of Images sharing a source type.
type ImageSet struct {
	SourceType int32
	Images     map[string]Image
}

// WriteImageSet emits sourceType, then a size-prefixed (32-bit signed) set
// of (key, image) pairs. Pairs are written in Go's map iteration order,
// which is not wire-significant for a single producer/consumer pair
// speaking the same schema but is not deterministic: two calls with the
// same ImageSet may emit the pairs in different orders.
func (s *Stream) WriteImageSet(set ImageSet) {
	s.Int32(set.SourceType)
	s.Int32(int32(len(set.Images)))
	for key, img := range set.Images {
		s.String(key)
		s.WriteImage(img)
	}
}
