package world

// BlockPos is a signed 16-bit 3D block coordinate, the Map's key type.
type BlockPos struct {
	X, Y, Z int16
}

// Map is a sparse grid of Blocks keyed by BlockPos, with a dirty-list
// drained by the renderer once per frame. Grounded on
// original_source's crates/mtt_core/src/world/map.rs.
type Map struct {
	blocks    map[BlockPos]*Block
	dirty     []BlockPos
	dirtySeen map[BlockPos]struct{}
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{
		blocks:    make(map[BlockPos]*Block),
		dirtySeen: make(map[BlockPos]struct{}),
	}
}

// Get returns the block at pos, or nil if none has arrived.
func (m *Map) Get(pos BlockPos) *Block {
	return m.blocks[pos]
}

// Set inserts or replaces the block at pos and marks it dirty, unless it
// is already pending in the current dirty list.
func (m *Map) Set(pos BlockPos, b *Block) {
	m.blocks[pos] = b
	if _, already := m.dirtySeen[pos]; already {
		return
	}
	m.dirtySeen[pos] = struct{}{}
	m.dirty = append(m.dirty, pos)
}

// TakeDirty returns the accumulated dirty list and clears it. Never
// returns duplicates within a single drain — the caller observes each
// position mutated since the previous TakeDirty exactly once.
func (m *Map) TakeDirty() []BlockPos {
	if len(m.dirty) == 0 {
		return nil
	}
	dirty := m.dirty
	m.dirty = nil
	m.dirtySeen = make(map[BlockPos]struct{})
	return dirty
}
