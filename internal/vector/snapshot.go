package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Snapshot is the persisted form of an index: live entries only, in position
// order, plus the generation at capture time.
type Snapshot struct {
	Dimensions int
	Generation uint64
	IDs        []string
	Vectors    [][]float32
}

// Count returns the number of records in the snapshot.
func (s *Snapshot) Count() int {
	return len(s.IDs)
}

// On-disk layout (zstd-compressed): magic (4), version (4), dimension (4),
// count (4), generation (8), then per record: idLen (4), id bytes, dimension
// float32s. All integers little-endian.
const (
	snapshotMagic   = 0x544d4958 // "TMIX"
	snapshotVersion = 1
)

// WriteFile persists the snapshot to path, creating parent directories.
// The file is written to a temp name and renamed so a crash never leaves a
// truncated snapshot behind.
func (s *Snapshot) WriteFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := s.encode(zw); err != nil {
		_ = zw.Close()
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("close zstd stream: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *Snapshot) encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := []interface{}{
		uint32(snapshotMagic),
		uint32(snapshotVersion),
		uint32(s.Dimensions),
		uint32(len(s.IDs)),
		s.Generation,
	}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, id := range s.IDs {
		idBytes := []byte(id)
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := bw.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeFloat32Slice(bw, s.Vectors[i]); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadSnapshotFile reads and decodes a snapshot from path.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()
	return decodeSnapshot(zr)
}

func decodeSnapshot(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)
	var magic, version, dim, count uint32
	var generation uint64
	for _, v := range []interface{}{&magic, &version, &dim, &count} {
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("bad snapshot magic: %#x", magic)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}
	if err := binary.Read(br, binary.LittleEndian, &generation); err != nil {
		return nil, fmt.Errorf("read generation: %w", err)
	}

	s := &Snapshot{
		Dimensions: int(dim),
		Generation: generation,
		IDs:        make([]string, 0, count),
		Vectors:    make([][]float32, 0, count),
	}
	buf := make([]byte, dim*4)
	for i := uint32(0); i < count; i++ {
		var idLen uint32
		if err := binary.Read(br, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(br, idBytes); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		s.IDs = append(s.IDs, string(idBytes))
		s.Vectors = append(s.Vectors, bytesToFloat32Slice(buf))
	}
	return s, nil
}

func writeFloat32Slice(w io.Writer, s []float32) error {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	_, err := w.Write(out)
	return err
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
