// Package world holds the in-memory world model: the decoded voxel grid
// (Map/Block), the node-definition registry (GameDefs), and the decoders
// that turn BlockData/NodeDef wire payloads into both. Grounded on
// original_source's crates/mtt_core/src/world/{block,map}.rs and
// mtt/src/game/node.rs, expressed in the teacher's small-struct-with-
// methods idiom rather than translated line-for-line.
package world

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"
)

// BlockSize is one axis of a Block's 16×16×16 voxel grid.
const BlockSize = 16

// BlockVolume is the node count in one Block.
const BlockVolume = BlockSize * BlockSize * BlockSize

// ErrInvalidBlock is returned when a decoded block's content/params width
// isn't 2, the only width this protocol version supports.
var ErrInvalidBlock = errors.New("world: invalid block (unsupported content/params width)")

// Node is one voxel: a GameDefs id plus its two per-node parameter bytes.
type Node struct {
	ID     uint16
	Param1 uint8
	Param2 uint8
}

// Block is one decoded 16³ chunk of the map, storing nodes as four
// parallel planes (id-high, id-low, param1, param2) exactly as they
// arrive on the wire, so decode is a single bounded copy.
type Block struct {
	nodeData []byte // 4 * BlockVolume bytes
}

// Node returns the node at local coordinate (x,y,z), each in [0,BlockSize).
func (b *Block) Node(x, y, z int) Node {
	index := z*BlockSize*BlockSize + y*BlockSize + x
	idHi := b.nodeData[2*index]
	idLo := b.nodeData[2*index+1]
	param1 := b.nodeData[2*BlockVolume+index]
	param2 := b.nodeData[3*BlockVolume+index]
	return Node{
		ID:     uint16(idHi)<<8 | uint16(idLo),
		Param1: param1,
		Param2: param2,
	}
}

var zstdDecoder *zstd.Decoder

func init() {
	d, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	zstdDecoder = d
}

// DecodeBlock decodes a BlockData payload's raw bytes per spec.md §4.6:
// strip the trailing legacy byte, zstd-decompress, validate content/params
// width, and take the 4×4096 node-data planes.
func DecodeBlock(raw []byte) (*Block, error) {
	if len(raw) < 1 {
		return nil, ErrInvalidBlock
	}
	compressed := raw[:len(raw)-1]

	decompressed, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(decompressed)

	// flags (1 byte) + lighting-complete (2 bytes), unused by this core.
	if _, err := r.Seek(3, io.SeekCurrent); err != nil {
		return nil, ErrInvalidBlock
	}

	var widths [2]byte
	if _, err := io.ReadFull(r, widths[:]); err != nil {
		return nil, ErrInvalidBlock
	}
	if widths[0] != 2 || widths[1] != 2 {
		return nil, ErrInvalidBlock
	}

	nodeData := make([]byte, BlockVolume*4)
	if _, err := io.ReadFull(r, nodeData); err != nil {
		return nil, ErrInvalidBlock
	}

	return &Block{nodeData: nodeData}, nil
}
