package world

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"

	"github.com/weqqr/mtt-go/internal/codec"
)

// ErrNodeDefVersion is returned when a NodeDef blob's version predates 13,
// the earliest layout this core understands.
var ErrNodeDefVersion = errors.New("world: node definition version < 13")

// DrawType mirrors the Minetest content-feature render mode, an 18-way
// enum from Normal through PlantLikeRooted.
type DrawType uint8

const (
	DrawNormal DrawType = iota
	DrawAirLike
	DrawLiquid
	DrawFlowingLiquid
	DrawGlassLike
	DrawAllFaces
	DrawAllFacesOptional
	DrawTorchLike
	DrawSignLike
	DrawPlantLike
	DrawFenceLike
	DrawRailLike
	DrawNodeBox
	DrawGlassLikeFramed
	DrawFireLike
	DrawGlassLikeFramedOptional
	DrawMesh
	DrawPlantLikeRooted
)

// Tile is one face texture descriptor: name, animation, optional color/
// scale/alignment gated by a flags bitfield, matching original_source's
// mtt/src/game/node.rs Tile::deserialize.
type Tile struct {
	Name      string
	Animation TileAnimation
	Flags     uint16
	Color     [3]uint8
	HasColor  bool
	Scale     uint8
	Alignment uint8
}

// TileAnimation is a tagged variant: None, VerticalFrames, or Sheet.
type TileAnimation struct {
	Kind     uint8
	AspectW  uint16
	AspectH  uint16
	FramesW  uint8
	FramesH  uint8
	Length   float32
}

const (
	tileFlagHasColor     = 1 << 3
	tileFlagHasScale     = 1 << 4
	tileFlagHasAlignment = 1 << 5
)

func readTileAnimation(r *codec.Reader) (TileAnimation, error) {
	var a TileAnimation
	kind, err := r.U8()
	if err != nil {
		return a, err
	}
	a.Kind = kind
	switch kind {
	case 0:
	case 1:
		if a.AspectW, err = r.U16(); err != nil {
			return a, err
		}
		if a.AspectH, err = r.U16(); err != nil {
			return a, err
		}
		if a.Length, err = r.F32(); err != nil {
			return a, err
		}
	case 2:
		if a.FramesW, err = r.U8(); err != nil {
			return a, err
		}
		if a.FramesH, err = r.U8(); err != nil {
			return a, err
		}
		if a.Length, err = r.F32(); err != nil {
			return a, err
		}
	default:
		return a, &codec.ErrUnknownVariant{Context: "tile animation", Value: uint64(kind)}
	}
	return a, nil
}

func readTile(r *codec.Reader) (Tile, error) {
	var t Tile
	version, err := r.U8()
	if err != nil {
		return t, err
	}
	if version < 6 {
		return t, errors.New("world: bad tile version")
	}
	if t.Name, err = r.ShortStr(); err != nil {
		return t, err
	}
	if t.Animation, err = readTileAnimation(r); err != nil {
		return t, err
	}
	if t.Flags, err = r.U16(); err != nil {
		return t, err
	}
	if t.Flags&tileFlagHasColor != 0 {
		t.HasColor = true
		for i := range t.Color {
			if t.Color[i], err = r.U8(); err != nil {
				return t, err
			}
		}
	}
	if t.Flags&tileFlagHasScale != 0 {
		if t.Scale, err = r.U8(); err != nil {
			return t, err
		}
	}
	if t.Flags&tileFlagHasAlignment != 0 {
		if t.Alignment, err = r.U8(); err != nil {
			return t, err
		}
	}
	return t, nil
}

// readTiles reads a u8 tile count (checked against expect) followed by
// that many tiles.
func readTiles(r *codec.Reader, expect uint8) ([]Tile, error) {
	count, err := r.U8()
	if err != nil {
		return nil, err
	}
	if count != expect {
		return nil, &codec.ErrUnknownVariant{Context: "tile count", Value: uint64(count)}
	}
	return readTilesN(r, count)
}

// readTilesN reads exactly count tiles with no count prefix of its own,
// for the overlay group which reuses the regular tile count instead of
// carrying one (original_source/mtt/src/game/node.rs Node::deserialize).
func readTilesN(r *codec.Reader, count uint8) ([]Tile, error) {
	tiles := make([]Tile, count)
	for i := range tiles {
		var err error
		if tiles[i], err = readTile(r); err != nil {
			return nil, err
		}
	}
	return tiles, nil
}

// NodeBox is the geometry descriptor for a node's collision/selection/
// drawn box, a tagged variant per original_source's NodeBox::deserialize.
type NodeBox struct {
	Kind uint8 // 0 Regular, 1 Fixed, 2 WallMounted, 3 Leveled, 4 Connected
}

func readAabbList(r *codec.Reader) error {
	count, err := r.U16()
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		// Aabb is 6 f32 (min xyz, max xyz); contents unused by this core.
		for j := 0; j < 6; j++ {
			if _, err := r.F32(); err != nil {
				return err
			}
		}
	}
	return nil
}

func readNodeBox(r *codec.Reader) (NodeBox, error) {
	var nb NodeBox
	version, err := r.U8()
	if err != nil {
		return nb, err
	}
	if version < 6 {
		return nb, errors.New("world: bad nodebox version")
	}
	kind, err := r.U8()
	if err != nil {
		return nb, err
	}
	nb.Kind = kind
	switch kind {
	case 0: // Regular
	case 1: // Fixed
		if err := readAabbList(r); err != nil {
			return nb, err
		}
	case 2: // WallMounted: top, bottom, side
		for i := 0; i < 3*6; i++ {
			if _, err := r.F32(); err != nil {
				return nb, err
			}
		}
	case 3: // Leveled
		if err := readAabbList(r); err != nil {
			return nb, err
		}
	case 4: // Connected: connected + 2×connectors(6 Boxes each) + disconnected + disconnected_sides
		if err := readAabbList(r); err != nil {
			return nb, err
		}
		for side := 0; side < 2*6; side++ {
			if err := readAabbList(r); err != nil {
				return nb, err
			}
		}
		if err := readAabbList(r); err != nil {
			return nb, err
		}
		if err := readAabbList(r); err != nil {
			return nb, err
		}
	default:
		return nb, &codec.ErrUnknownVariant{Context: "node box kind", Value: uint64(kind)}
	}
	return nb, nil
}

// Sound is a named sound-effect reference with gain/pitch/fade.
type Sound struct {
	Name             string
	Gain, Pitch, Fade float32
}

func readSound(r *codec.Reader) (Sound, error) {
	var s Sound
	var err error
	if s.Name, err = r.ShortStr(); err != nil {
		return s, err
	}
	if s.Gain, err = r.F32(); err != nil {
		return s, err
	}
	if s.Pitch, err = r.F32(); err != nil {
		return s, err
	}
	if s.Fade, err = r.F32(); err != nil {
		return s, err
	}
	return s, nil
}

// NodeDef is one entry of the GameDefs registry.
type NodeDef struct {
	Name               string
	Groups             map[string]int16
	ParamType1         uint8
	ParamType2         uint8
	DrawType           DrawType
	Mesh               string
	VisualScale        float32
	Tiles              []Tile
	TilesOverlay       []Tile
	TilesSpecial       []Tile
	BaseColor          [3]uint8
	PaletteName        string
	Waving             uint8
	ConnectSides       uint8
	ConnectsTo         []uint16
	PostEffectColor    [4]uint8
	Leveled            uint8
	LightPropagates    bool
	SunlightPropagates bool
	LightSource        uint8
	IsGroundContent    bool
}

// airNodeDef is synthesized for any id skipped by the wire entries
// (spec.md §4.6: "unknown ids grow the node table").
func airNodeDef() *NodeDef {
	return &NodeDef{
		Name:     "air",
		Groups:   map[string]int16{},
		DrawType: DrawAirLike,
	}
}

func readNodeDefEntry(r *codec.Reader) (*NodeDef, error) {
	size, err := r.U16()
	if err != nil {
		return nil, err
	}
	body, err := r.Take(int(size))
	if err != nil {
		return nil, err
	}
	er := codec.NewReader(body)

	version, err := er.U8()
	if err != nil {
		return nil, err
	}
	if version < 13 {
		return nil, ErrNodeDefVersion
	}

	n := &NodeDef{Groups: make(map[string]int16)}
	if n.Name, err = er.ShortStr(); err != nil {
		return nil, err
	}

	groupCount, err := er.U16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < groupCount; i++ {
		name, err := er.ShortStr()
		if err != nil {
			return nil, err
		}
		value, err := er.I16()
		if err != nil {
			return nil, err
		}
		n.Groups[name] = value
	}

	if n.ParamType1, err = er.U8(); err != nil {
		return nil, err
	}
	if n.ParamType2, err = er.U8(); err != nil {
		return nil, err
	}

	drawType, err := er.U8()
	if err != nil {
		return nil, err
	}
	if drawType > uint8(DrawPlantLikeRooted) {
		return nil, &codec.ErrUnknownVariant{Context: "draw type", Value: uint64(drawType)}
	}
	n.DrawType = DrawType(drawType)

	if n.Mesh, err = er.ShortStr(); err != nil {
		return nil, err
	}
	if n.VisualScale, err = er.F32(); err != nil {
		return nil, err
	}

	if n.Tiles, err = readTiles(er, 6); err != nil {
		return nil, err
	}
	if n.TilesOverlay, err = readTilesN(er, uint8(len(n.Tiles))); err != nil {
		return nil, err
	}
	if n.TilesSpecial, err = readTiles(er, 6); err != nil {
		return nil, err
	}

	if _, err = er.U8(); err != nil { // alpha, unused by this core
		return nil, err
	}
	for i := range n.BaseColor {
		if n.BaseColor[i], err = er.U8(); err != nil {
			return nil, err
		}
	}

	if n.PaletteName, err = er.ShortStr(); err != nil {
		return nil, err
	}
	if n.Waving, err = er.U8(); err != nil {
		return nil, err
	}
	if n.ConnectSides, err = er.U8(); err != nil {
		return nil, err
	}

	connectsToCount, err := er.U16()
	if err != nil {
		return nil, err
	}
	n.ConnectsTo = make([]uint16, connectsToCount)
	for i := range n.ConnectsTo {
		if n.ConnectsTo[i], err = er.U16(); err != nil {
			return nil, err
		}
	}

	for i := range n.PostEffectColor {
		if n.PostEffectColor[i], err = er.U8(); err != nil {
			return nil, err
		}
	}

	if n.Leveled, err = er.U8(); err != nil {
		return nil, err
	}

	lightPropagates, err := er.U8()
	if err != nil {
		return nil, err
	}
	n.LightPropagates = lightPropagates != 0
	sunlightPropagates, err := er.U8()
	if err != nil {
		return nil, err
	}
	n.SunlightPropagates = sunlightPropagates != 0
	if n.LightSource, err = er.U8(); err != nil {
		return nil, err
	}

	groundContent, err := er.Bool()
	if err != nil {
		return nil, err
	}
	n.IsGroundContent = groundContent

	// interaction: walkable, pointable, diggable, climbable, buildable_to,
	// rightclickable (6 bools) + damage_per_second (u32) — unused by this core.
	for i := 0; i < 6; i++ {
		if _, err := er.Bool(); err != nil {
			return nil, err
		}
	}
	if _, err := er.U32(); err != nil {
		return nil, err
	}

	// liquid descriptor: ty, alt_flowing, alt_source, viscosity, renewable,
	// range, drowning, floodable — unused by this core.
	if _, err := er.U8(); err != nil {
		return nil, err
	}
	if _, err := er.ShortStr(); err != nil {
		return nil, err
	}
	if _, err := er.ShortStr(); err != nil {
		return nil, err
	}
	if _, err := er.U8(); err != nil {
		return nil, err
	}
	if _, err := er.Bool(); err != nil {
		return nil, err
	}
	if _, err := er.U8(); err != nil {
		return nil, err
	}
	if _, err := er.U8(); err != nil {
		return nil, err
	}
	if _, err := er.Bool(); err != nil {
		return nil, err
	}

	if _, err := readNodeBox(er); err != nil { // node_box
		return nil, err
	}
	if _, err := readNodeBox(er); err != nil { // selection_box
		return nil, err
	}
	if _, err := readNodeBox(er); err != nil { // collision_box
		return nil, err
	}

	if _, err := readSound(er); err != nil { // footstep
		return nil, err
	}
	if _, err := readSound(er); err != nil { // dig
		return nil, err
	}
	if _, err := readSound(er); err != nil { // dug
		return nil, err
	}

	if _, err := er.U8(); err != nil {
		return nil, err
	}
	if _, err := er.U8(); err != nil {
		return nil, err
	}

	if _, err := er.ShortStr(); err != nil { // node_dig_prediction
		return nil, err
	}
	for i := 0; i < 4; i++ {
		if _, err := er.U8(); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// DecodeNodeDefs zlib-decompresses a NodeDef payload and parses the
// packed node table per spec.md §4.6, returning a slice indexed directly
// by node id. Gaps between explicit entries are synthesized as air.
func DecodeNodeDefs(blob []byte) ([]*NodeDef, error) {
	zr, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}

	r := codec.NewReader(buf.Bytes())

	version, err := r.U8()
	if err != nil {
		return nil, err
	}
	if version < 13 {
		return nil, ErrNodeDefVersion
	}

	count, err := r.U16()
	if err != nil {
		return nil, err
	}

	if _, err := r.Take(4); err != nil { // reserved length
		return nil, err
	}

	defs := make([]*NodeDef, 0)
	for i := uint16(0); i < count; i++ {
		id, err := r.U16()
		if err != nil {
			return nil, err
		}
		entry, err := readNodeDefEntry(r)
		if err != nil {
			return nil, err
		}
		for len(defs) <= int(id) {
			defs = append(defs, airNodeDef())
		}
		defs[id] = entry
	}

	return defs, nil
}
