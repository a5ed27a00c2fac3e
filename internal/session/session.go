// Package session implements the state machine that drives handshake,
// SRP-6a authentication, media/node-definition readiness gating, and
// steady-state play (spec.md §4.5). It is the one package that wires
// transport, proto, srp, world and mediacache together into a single
// event loop, grounded on the teacher's Session struct in
// source/protocol/raknet.go for its "one goroutine owns all mutable
// state, driven by a message loop" shape — generalized here from RakNet
// RPC dispatch to this protocol's InGame message-handling table.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/weqqr/mtt-go/internal/mediacache"
	"github.com/weqqr/mtt-go/internal/proto"
	"github.com/weqqr/mtt-go/internal/srp"
	"github.com/weqqr/mtt-go/internal/transport"
	"github.com/weqqr/mtt-go/internal/vecmath"
	"github.com/weqqr/mtt-go/internal/world"
	"github.com/weqqr/mtt-go/pkg/mtlog"
)

// State is one of the session FSM's real states; MediaSync/DefsSync from
// spec.md §4.5 are gate-flags, not states, and so have no State value.
type State int

const (
	StateHandshake State = iota
	StateAuth
	StateInGame
	StateExit
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateAuth:
		return "auth"
	case StateInGame:
		return "in-game"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}

// ErrUnexpectedMessage is returned when the handshake's first delivered
// message isn't Hello.
var ErrUnexpectedMessage = errors.New("session: unexpected first message")

// Player is the local camera state, scaled into world units.
type Player struct {
	Pos     vecmath.Vec3F32
	LookDir vecmath.Vec3F32
}

// Session owns WorldState, GameDefs and a handle to Transport. Run is the
// only goroutine that mutates the fields below mu; every other goroutine
// (a renderer, a status reporter) must go through Snapshot/TakeDirtyBlocks/
// GameDefs, which take mu before touching them — spec.md §5's "shared
// read-lock guarded structure" alternative to a snapshot channel.
type Session struct {
	tr    *transport.Transport
	log   *mtlog.Logger
	media *mediacache.Cache

	mu    sync.Mutex
	state State

	srpClient *srp.Client
	username  string
	password  string

	player       Player
	timeOfDay    uint16
	timeSpeed    float32
	mapSeed      uint64
	sendInterval float32
	hp           uint16
	breath       uint16
	privileges   []string

	mapModel *world.Map
	defs     *world.GameDefs

	catalog map[string]string // filename -> hex digest
	missing map[string]bool

	authDone         bool
	mediaReady       bool
	nodesReady       bool
	clientReadySent  bool

	chatCh chan proto.ChatMessage
}

// Open performs the transport-level handshake, consumes the resulting
// Hello, and starts the SRP-6a exchange described in spec.md §4.5. The
// caller should next call Run in a loop until it returns.
func Open(ctx context.Context, addr, username, password, mediaCacheDir string, log *mtlog.Logger) (*Session, error) {
	tr, err := transport.Open(ctx, addr, username, log)
	if err != nil {
		return nil, err
	}

	cache, err := mediacache.Open(mediaCacheDir)
	if err != nil {
		tr.Shutdown()
		return nil, err
	}

	msg, err := tr.RecvMessage(ctx)
	if err != nil {
		tr.Shutdown()
		return nil, err
	}
	if _, ok := msg.(proto.Hello); !ok {
		tr.Shutdown()
		return nil, ErrUnexpectedMessage
	}

	s := &Session{
		tr:       tr,
		log:      log,
		media:    cache,
		state:    StateAuth,
		username: username,
		password: password,
		mapModel: world.NewMap(),
		catalog:  make(map[string]string),
		missing:  make(map[string]bool),
		chatCh:   make(chan proto.ChatMessage, 64),
	}

	if err := s.beginAuth(); err != nil {
		tr.Shutdown()
		return nil, err
	}

	return s, nil
}

func (s *Session) beginAuth() error {
	client, err := srp.NewClient(s.username, s.password)
	if err != nil {
		return err
	}
	s.srpClient = client
	return s.tr.SendMessage(proto.SrpBytesA{A: client.PublicEphemeral(), BasedOn: 1}, true, 1)
}

// Chat returns the channel carrying incoming chat messages for the UI.
func (s *Session) Chat() <-chan proto.ChatMessage { return s.chatCh }

// Snapshot is a consistent, point-in-time copy of the fields a renderer or
// status reporter cares about. It is the read-only view spec.md §5 requires
// consumers to observe world/player state through.
type Snapshot struct {
	State      State
	Player     Player
	Hp         uint16
	Breath     uint16
	Privileges []string
	TimeOfDay  uint16
	TimeSpeed  float32
}

// Snapshot takes mu and copies out the fields Run mutates, so a caller on
// another goroutine never observes a torn read.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:      s.state,
		Player:     s.player,
		Hp:         s.hp,
		Breath:     s.breath,
		Privileges: s.privileges,
		TimeOfDay:  s.timeOfDay,
		TimeSpeed:  s.timeSpeed,
	}
}

// TakeDirtyBlocks drains and returns the world grid's dirty-block list under
// mu, since mapModel mutation (Set, from handleMessage's BlockData case) runs
// on Run's goroutine.
func (s *Session) TakeDirtyBlocks() []world.BlockPos {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapModel.TakeDirty()
}

// GameDefs returns the node-definition registry, nil until NodeDef
// arrives.
func (s *Session) GameDefs() *world.GameDefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defs
}

// Shutdown closes the underlying transport.
func (s *Session) Shutdown() {
	s.tr.Shutdown()
}

// Run drives the session loop until the transport closes, a fatal error
// occurs, or ctx is cancelled. Per spec.md §7, most message/codec errors
// during InGame are logged and dropped rather than propagated; handshake
// and protocol-layer errors are fatal and returned here.
func (s *Session) Run(ctx context.Context) error {
	for {
		msg, err := s.tr.RecvMessage(ctx)
		if err != nil {
			s.mu.Lock()
			s.state = StateExit
			s.mu.Unlock()
			return err
		}
		if err := s.handleMessage(msg); err != nil {
			s.mu.Lock()
			s.state = StateExit
			s.mu.Unlock()
			return err
		}
		s.mu.Lock()
		exit := s.state == StateExit
		s.mu.Unlock()
		if exit {
			return nil
		}
	}
}

func (s *Session) handleMessage(msg proto.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case proto.Hello:
		// stray Hello after the handshake's first delivery is ignored
		// per spec.md §4.5 step 3.
	case proto.SrpBytesSB:
		if err := s.handleSrpBytesSB(m); err != nil {
			return err
		}
	case proto.AuthAccept:
		s.player.Pos = m.PlayerPos.World()
		s.mapSeed = m.MapSeed
		s.sendInterval = m.SendInterval
		s.authDone = true
		if err := s.tr.SendMessage(proto.Init2{Language: ""}, true, 1); err != nil {
			return err
		}
	case proto.TimeOfDay:
		s.timeOfDay = m.Time
		s.timeSpeed = m.Speed
	case proto.BlockData:
		block, err := world.DecodeBlock(m.Block)
		if err != nil {
			return err
		}
		pos := world.BlockPos{X: m.Pos.X, Y: m.Pos.Y, Z: m.Pos.Z}
		s.mapModel.Set(pos, block)
		if err := s.tr.SendMessage(proto.GotBlocks{Positions: []proto.PosI16{{X: m.Pos.X, Y: m.Pos.Y, Z: m.Pos.Z}}}, true, 1); err != nil {
			return err
		}
	case proto.MovePlayer:
		s.player.Pos = m.Pos.World()
		s.player.LookDir = vecmath.LookDir(m.Pitch, m.Yaw)
	case proto.AnnounceMedia:
		s.handleAnnounceMedia(m)
		if err := s.tr.SendMessage(proto.RequestMedia{Filenames: s.missingNames()}, true, 1); err != nil {
			return err
		}
	case proto.Media:
		s.handleMedia(m)
	case proto.NodeDef:
		defs, err := world.DecodeNodeDefs(m.Blob)
		if err != nil {
			return err
		}
		s.defs = world.NewGameDefs(defs)
		s.nodesReady = true
	case proto.ChatMessage:
		select {
		case s.chatCh <- m:
		default:
			if s.log != nil {
				s.log.Warn("chat queue full, dropping message from %s", m.Sender)
			}
		}
	case proto.Hp:
		s.hp = m.Hp
	case proto.Breath:
		s.breath = m.Breath
	case proto.Privileges:
		s.privileges = m.Privileges
	case proto.CsmRestrictionFlags:
		// decoded but not stored; this core enforces no client-side
		// scripting restrictions (rendering/scripting are out of scope).
	default:
		if s.log != nil {
			s.log.Debug("ignoring unhandled message %T", m)
		}
	}

	return s.checkReadiness()
}

func (s *Session) handleSrpBytesSB(m proto.SrpBytesSB) error {
	if s.srpClient == nil {
		return nil
	}
	m1, _, err := s.srpClient.ComputeProof(m.Salt, m.B)
	if err != nil {
		return err
	}
	return s.tr.SendMessage(proto.SrpBytesM{M: m1}, true, 1)
}

func (s *Session) handleAnnounceMedia(m proto.AnnounceMedia) {
	s.catalog = make(map[string]string, len(m.Digests))
	s.missing = make(map[string]bool)
	for _, d := range m.Digests {
		digestHex, err := mediacache.DigestHexFromBase64(d.Digest)
		if err != nil {
			if s.log != nil {
				s.log.Warn("bad media digest for %s: %v", d.Filename, err)
			}
			continue
		}
		s.catalog[d.Filename] = digestHex
		if !s.media.Contains(digestHex) {
			s.missing[d.Filename] = true
		}
	}
}

func (s *Session) missingNames() []string {
	names := make([]string, 0, len(s.missing))
	for name := range s.missing {
		names = append(names, name)
	}
	return names
}

func (s *Session) handleMedia(m proto.Media) {
	for _, f := range m.Files {
		digestHex, known := s.catalog[f.Name]
		if !known {
			if s.log != nil {
				s.log.Warn("received undeclared media file %s", f.Name)
			}
			continue
		}
		if err := s.media.Put(digestHex, f.Data); err != nil {
			// spec.md §7: digest mismatch is a non-fatal semantic error.
			if s.log != nil {
				s.log.Warn("media %s failed digest verification: %v", f.Name, err)
			}
			continue
		}
		delete(s.missing, f.Name)
	}
	if m.BunchCount > 0 && m.BunchID == m.BunchCount-1 {
		s.mediaReady = true
	}
}

func (s *Session) checkReadiness() error {
	if s.state == StateAuth && s.authDone {
		s.state = StateInGame
	}
	if s.authDone && s.mediaReady && s.nodesReady && !s.clientReadySent {
		err := s.tr.SendMessage(proto.ClientReady{
			VersionMajor:    5,
			VersionMinor:    5,
			VersionPatch:    0,
			Reserved:        0x77,
			FullVersion:     "mtt-go 0.1.0",
			FormspecVersion: 4,
		}, true, 1)
		if err != nil {
			return err
		}
		s.clientReadySent = true
	}
	return nil
}
