package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/roomcode"
)

// codeAttempts bounds room code generation against collisions.
const codeAttempts = 100

// Registry owns the live rooms and the user-to-room index. A user sits
// in at most one room at a time; joining another room moves them, and
// the previous room sees an ordinary leave.
//
// Lock discipline: the mutex protects only the two maps. Session calls
// always happen outside the lock, because a session's writer may call
// back into the registry (room closed, user evicted) and would deadlock
// against a held lock.
type Registry struct {
	logger  zerolog.Logger
	roomCfg game.Config
	fanout  game.Fanout
	hooks   game.LifecycleHooks
	clock   quartz.Clock
	codes   *roomcode.Generator

	mu      sync.RWMutex
	rooms   map[string]*game.Session
	users   map[string]string // userID -> room code
	roomSeq int
	closed  bool
}

// RegistryDeps are the collaborators shared by every session the
// registry creates.
type RegistryDeps struct {
	Fanout     game.Fanout
	Hooks      game.LifecycleHooks
	Clock      quartz.Clock
	Logger     zerolog.Logger
	RandSource roomcode.RandSource
}

// NewRegistry creates an empty room registry.
func NewRegistry(roomCfg game.Config, deps RegistryDeps) *Registry {
	if deps.Fanout == nil {
		deps.Fanout = game.NopFanout{}
	}
	if deps.Hooks == nil {
		deps.Hooks = game.NopHooks{}
	}
	return &Registry{
		logger:  deps.Logger.With().Str("component", "registry").Logger(),
		roomCfg: roomCfg,
		fanout:  deps.Fanout,
		hooks:   deps.Hooks,
		clock:   deps.Clock,
		codes:   roomcode.NewGenerator(deps.RandSource),
		rooms:   make(map[string]*game.Session),
		users:   make(map[string]string),
	}
}

// CreateRoom creates a room and seats its creator as leader.
func (r *Registry) CreateRoom(userID, nickname string, opts CreateRoomData) (*game.Session, string, error) {
	cfg := r.roomCfg
	if opts.MaxPlayers > 0 {
		cfg.MaxPlayers = opts.MaxPlayers
	}
	if opts.InitialHandSize > 0 {
		cfg.InitialHandSize = opts.InitialHandSize
	}
	if opts.NoStacking {
		cfg.StackingAllowed = false
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, "", game.NewError(game.CodeWrongState, "server is shutting down")
	}
	if r.users[userID] != "" {
		r.mu.Unlock()
		return nil, "", game.NewError(game.CodeAlreadyInRoom, "already in room %s", r.users[userID])
	}

	code := ""
	for i := 0; i < codeAttempts; i++ {
		candidate := r.codes.Generate()
		if _, taken := r.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		r.mu.Unlock()
		return nil, "", game.NewError(game.CodeInternal, "could not allocate a room code")
	}

	r.roomSeq++
	sessionID := fmt.Sprintf("sess-%s-%d", code, r.roomSeq)
	sess := game.NewSession(sessionID, code, cfg, opts.IsPrivate, game.Deps{
		Fanout:        r.fanout,
		Hooks:         r.hooks,
		Clock:         r.clock,
		Logger:        r.logger,
		OnClosed:      r.dropRoom,
		OnUserEvicted: r.unmapUser,
	})
	r.rooms[code] = sess
	r.users[userID] = code
	r.mu.Unlock()

	seatID, err := sess.Join(userID, nickname)
	if err != nil {
		r.mu.Lock()
		delete(r.rooms, code)
		delete(r.users, userID)
		r.mu.Unlock()
		sess.Close()
		return nil, "", err
	}

	r.logger.Info().Str("room", code).Str("user", userID).Msg("Room created")
	return sess, seatID, nil
}

// JoinRoom seats a user in an existing room by code. A user seated
// elsewhere is moved: the old session runs its full leave path
// (substitution, leadership transfer, closing) before the new seat is
// taken. The target room is checked first so a bad code cannot evict
// anyone from their current room.
func (r *Registry) JoinRoom(code, userID, nickname string) (*game.Session, string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := roomcode.Validate(code); err != nil {
		return nil, "", game.NewError(game.CodeNotFound, "invalid room code")
	}

	r.mu.RLock()
	_, ok := r.rooms[code]
	current := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return nil, "", game.NewError(game.CodeNotFound, "no room with code %s", code)
	}

	if current != "" && current != code {
		if _, err := r.LeaveRoom(userID); err != nil {
			return nil, "", err
		}
	}

	// Re-resolve under the lock: the leave above may have dropped the
	// target room if the user was its last human.
	r.mu.Lock()
	sess, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return nil, "", game.NewError(game.CodeNotFound, "no room with code %s", code)
	}
	r.users[userID] = code
	r.mu.Unlock()

	seatID, err := sess.Join(userID, nickname)
	if err != nil {
		// A failed re-join of the user's own room keeps the mapping:
		// they are still seated there.
		if current != code {
			r.mu.Lock()
			if r.users[userID] == code {
				delete(r.users, userID)
			}
			r.mu.Unlock()
		}
		return nil, "", err
	}
	return sess, seatID, nil
}

// LeaveRoom removes a user from whatever room they are in. A user in no
// room is a no-op.
func (r *Registry) LeaveRoom(userID string) (string, error) {
	sess, code := r.roomOf(userID)
	if sess == nil {
		return "", nil
	}

	err := sess.Leave(userID)
	r.mu.Lock()
	if r.users[userID] == code {
		delete(r.users, userID)
	}
	r.mu.Unlock()
	if err != nil && err != game.ErrClosed {
		return code, err
	}
	return code, nil
}

// RoomOf returns the session the user currently sits in.
func (r *Registry) RoomOf(userID string) (*game.Session, bool) {
	sess, _ := r.roomOf(userID)
	return sess, sess != nil
}

func (r *Registry) roomOf(userID string) (*game.Session, string) {
	r.mu.RLock()
	code := r.users[userID]
	sess := r.rooms[code]
	r.mu.RUnlock()
	return sess, code
}

// Get returns the session for a room code.
func (r *Registry) Get(code string) (*game.Session, bool) {
	r.mu.RLock()
	sess, ok := r.rooms[strings.ToUpper(code)]
	r.mu.RUnlock()
	return sess, ok
}

// ListRooms returns the lobby listing of public rooms.
func (r *Registry) ListRooms() []game.RoomInfo {
	r.mu.RLock()
	sessions := make([]*game.Session, 0, len(r.rooms))
	for _, sess := range r.rooms {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	rooms := make([]game.RoomInfo, 0, len(sessions))
	for _, sess := range sessions {
		info := sess.Info()
		if !listable(info) {
			continue
		}
		rooms = append(rooms, info)
	}
	return rooms
}

// listable reports whether a room belongs in the public lobby listing.
// Private rooms are invite-only and finished games cannot be joined.
func listable(info game.RoomInfo) bool {
	return !info.IsPrivate && info.Status != game.StatusGameOver
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CloseAll tears down every room, used at server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*game.Session, 0, len(r.rooms))
	for _, sess := range r.rooms {
		sessions = append(sessions, sess)
	}
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// dropRoom is the session OnClosed callback.
func (r *Registry) dropRoom(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	for user, c := range r.users {
		if c == code {
			delete(r.users, user)
		}
	}
	r.mu.Unlock()
	r.logger.Info().Str("room", code).Msg("Room removed")
}

// unmapUser is the session OnUserEvicted callback.
func (r *Registry) unmapUser(userID string) {
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()
}
