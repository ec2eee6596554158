package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"unsafe"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

const (
	magicBytes  = "ROADNET1"
	version     = uint32(1)
	maxNodes    = 10_000_000
	maxArcs     = 50_000_000
	maxSegments = 20_000_000
	maxPoints   = 200_000_000
	maxClassLen = 1 << 28
)

// fileHeader is the binary snapshot header.
type fileHeader struct {
	Magic       [8]byte
	Version     uint32
	NumNodes    uint32
	NumArcs     uint32
	NumEdges    uint32
	NumSegments uint32
	NumPoints   uint32 // flattened segment point count
	ClassBytes  uint32 // classification string blob length
}

// WriteBinary serializes a routable graph to a snapshot file. The write
// goes to a temp file first and is renamed into place, so a crash never
// leaves a truncated snapshot behind. Uses unsafe.Slice for zero-copy I/O.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	// Flatten the segment table into parallel arrays.
	numSegments := len(g.Segments)
	segID := make([]int64, numSegments)
	segLength := make([]float64, numSegments)
	ptFirst := make([]uint32, numSegments+1)
	classFirst := make([]uint32, numSegments+1)
	var ptLon, ptLat []float64
	var classBlob []byte

	for i, s := range g.Segments {
		segID[i] = s.ID
		segLength[i] = s.LengthMeters
		ptFirst[i] = uint32(len(ptLon))
		for _, p := range s.Points {
			ptLon = append(ptLon, p.Lon)
			ptLat = append(ptLat, p.Lat)
		}
		classFirst[i] = uint32(len(classBlob))
		classBlob = append(classBlob, s.Classification...)
	}
	ptFirst[numSegments] = uint32(len(ptLon))
	classFirst[numSegments] = uint32(len(classBlob))

	hdr := fileHeader{
		Version:     version,
		NumNodes:    g.NumNodes,
		NumArcs:     g.NumArcs(),
		NumEdges:    g.NumEdges,
		NumSegments: uint32(numSegments),
		NumPoints:   uint32(len(ptLon)),
		ClassBytes:  uint32(len(classBlob)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Node data.
	if err := writeFloat64Slice(w, g.NodeLon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}
	if err := writeFloat64Slice(w, g.NodeLat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}

	// CSR arcs.
	if err := writeUint32Slice(w, g.FirstOut); err != nil {
		return fmt.Errorf("write FirstOut: %w", err)
	}
	if err := writeUint32Slice(w, g.Head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}
	if err := writeFloat64Slice(w, g.Weight); err != nil {
		return fmt.Errorf("write Weight: %w", err)
	}
	if err := writeInt32Slice(w, g.EdgeSeg); err != nil {
		return fmt.Errorf("write EdgeSeg: %w", err)
	}
	if err := writeBoolSlice(w, g.Forward); err != nil {
		return fmt.Errorf("write Forward: %w", err)
	}

	// Segment table.
	if err := writeInt64Slice(w, segID); err != nil {
		return fmt.Errorf("write SegID: %w", err)
	}
	if err := writeFloat64Slice(w, segLength); err != nil {
		return fmt.Errorf("write SegLength: %w", err)
	}
	if err := writeUint32Slice(w, ptFirst); err != nil {
		return fmt.Errorf("write PtFirst: %w", err)
	}
	if err := writeFloat64Slice(w, ptLon); err != nil {
		return fmt.Errorf("write PtLon: %w", err)
	}
	if err := writeFloat64Slice(w, ptLat); err != nil {
		return fmt.Errorf("write PtLat: %w", err)
	}
	if err := writeUint32Slice(w, classFirst); err != nil {
		return fmt.Errorf("write ClassFirst: %w", err)
	}
	if len(classBlob) > 0 {
		if _, err := w.Write(classBlob); err != nil {
			return fmt.Errorf("write ClassBlob: %w", err)
		}
	}

	// CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a routable graph from a snapshot file and
// validates its structural invariants.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumArcs > maxArcs {
		return nil, fmt.Errorf("NumArcs %d exceeds limit %d", hdr.NumArcs, maxArcs)
	}
	if hdr.NumSegments > maxSegments {
		return nil, fmt.Errorf("NumSegments %d exceeds limit %d", hdr.NumSegments, maxSegments)
	}
	if hdr.NumPoints > maxPoints {
		return nil, fmt.Errorf("NumPoints %d exceeds limit %d", hdr.NumPoints, maxPoints)
	}
	if hdr.ClassBytes > maxClassLen {
		return nil, fmt.Errorf("ClassBytes %d exceeds limit %d", hdr.ClassBytes, maxClassLen)
	}

	g := &Graph{NumNodes: hdr.NumNodes, NumEdges: hdr.NumEdges}

	if g.NodeLon, err = readFloat64Slice(r, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}
	if g.NodeLat, err = readFloat64Slice(r, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}

	if g.FirstOut, err = readUint32Slice(r, int(hdr.NumNodes+1)); err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if g.Head, err = readUint32Slice(r, int(hdr.NumArcs)); err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}
	if g.Weight, err = readFloat64Slice(r, int(hdr.NumArcs)); err != nil {
		return nil, fmt.Errorf("read Weight: %w", err)
	}
	if g.EdgeSeg, err = readInt32Slice(r, int(hdr.NumArcs)); err != nil {
		return nil, fmt.Errorf("read EdgeSeg: %w", err)
	}
	if g.Forward, err = readBoolSlice(r, int(hdr.NumArcs)); err != nil {
		return nil, fmt.Errorf("read Forward: %w", err)
	}

	segID, err := readInt64Slice(r, int(hdr.NumSegments))
	if err != nil {
		return nil, fmt.Errorf("read SegID: %w", err)
	}
	segLength, err := readFloat64Slice(r, int(hdr.NumSegments))
	if err != nil {
		return nil, fmt.Errorf("read SegLength: %w", err)
	}
	ptFirst, err := readUint32Slice(r, int(hdr.NumSegments+1))
	if err != nil {
		return nil, fmt.Errorf("read PtFirst: %w", err)
	}
	ptLon, err := readFloat64Slice(r, int(hdr.NumPoints))
	if err != nil {
		return nil, fmt.Errorf("read PtLon: %w", err)
	}
	ptLat, err := readFloat64Slice(r, int(hdr.NumPoints))
	if err != nil {
		return nil, fmt.Errorf("read PtLat: %w", err)
	}
	classFirst, err := readUint32Slice(r, int(hdr.NumSegments+1))
	if err != nil {
		return nil, fmt.Errorf("read ClassFirst: %w", err)
	}
	classBlob := make([]byte, hdr.ClassBytes)
	if hdr.ClassBytes > 0 {
		if _, err := io.ReadFull(r, classBlob); err != nil {
			return nil, fmt.Errorf("read ClassBlob: %w", err)
		}
	}

	// CRC32 trailer (read from f directly so it is not hashed).
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if g.Segments, err = rebuildSegments(hdr, segID, segLength, ptFirst, ptLon, ptLat, classFirst, classBlob); err != nil {
		return nil, err
	}
	if err := validateGraph(g); err != nil {
		return nil, err
	}

	return g, nil
}

// rebuildSegments reassembles the segment table from its flattened form.
func rebuildSegments(hdr fileHeader, segID []int64, segLength []float64,
	ptFirst []uint32, ptLon, ptLat []float64, classFirst []uint32, classBlob []byte) ([]roads.Segment, error) {

	n := int(hdr.NumSegments)
	segments := make([]roads.Segment, n)
	for i := 0; i < n; i++ {
		pStart, pEnd := ptFirst[i], ptFirst[i+1]
		if pStart > pEnd || pEnd > hdr.NumPoints {
			return nil, fmt.Errorf("PtFirst not monotonic at segment %d", i)
		}
		if pEnd-pStart < 2 {
			return nil, fmt.Errorf("segment %d has %d points", i, pEnd-pStart)
		}
		cStart, cEnd := classFirst[i], classFirst[i+1]
		if cStart > cEnd || cEnd > hdr.ClassBytes {
			return nil, fmt.Errorf("ClassFirst not monotonic at segment %d", i)
		}

		points := make([]geo.Point, pEnd-pStart)
		for j := range points {
			points[j] = geo.Point{Lon: ptLon[pStart+uint32(j)], Lat: ptLat[pStart+uint32(j)]}
		}
		segments[i] = roads.Segment{
			ID:             segID[i],
			Points:         points,
			Classification: string(classBlob[cStart:cEnd]),
			LengthMeters:   segLength[i],
		}
	}
	if n > 0 {
		if ptFirst[n] != hdr.NumPoints {
			return nil, fmt.Errorf("PtFirst trailer %d != NumPoints %d", ptFirst[n], hdr.NumPoints)
		}
		if classFirst[n] != hdr.ClassBytes {
			return nil, fmt.Errorf("ClassFirst trailer %d != ClassBytes %d", classFirst[n], hdr.ClassBytes)
		}
	}
	return segments, nil
}

// validateGraph checks the structural invariants a routable graph must
// satisfy before the route engine may use it.
func validateGraph(g *Graph) error {
	if err := validateCSR(g.FirstOut, g.Head, g.NumNodes); err != nil {
		return fmt.Errorf("CSR invalid: %w", err)
	}
	for i, w := range g.Weight {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("Weight[%d]=%v not a finite non-negative value", i, w)
		}
	}
	numSegments := int32(len(g.Segments))
	for i, s := range g.EdgeSeg {
		if s != NoSegment && (s < 0 || s >= numSegments) {
			return fmt.Errorf("EdgeSeg[%d]=%d out of range [0,%d)", i, s, numSegments)
		}
	}
	return nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	numArcs := firstOut[numNodes]
	if uint32(len(head)) != numArcs {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numArcs)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt64Slice(w io.Writer, s []int64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

// writeBoolSlice stores bools as one byte each.
func writeBoolSlice(w io.Writer, s []bool) error {
	if len(s) == 0 {
		return nil
	}
	b := make([]byte, len(s))
	for i, v := range s {
		if v {
			b[i] = 1
		}
	}
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt64Slice(r io.Reader, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readBoolSlice(r io.Reader, n int) ([]bool, error) {
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	s := make([]bool, n)
	for i, v := range b {
		s[i] = v != 0
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
