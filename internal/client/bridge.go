package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/server"
)

// UI is the surface the bridge drives. The terminal model implements
// it; tests substitute a recorder.
type UI interface {
	AddLogEntry(string)
	SetPublic(state game.PublicState, roomCode, mySeatID string)
	SetHand(hand []card.Card)
	WaitForAction() (string, []string, bool, error)
	SendQuitSignal()
	FormatCard(c card.Card) string
}

// Bridge connects a client's event stream to the UI and turns typed
// commands into protocol requests.
type Bridge struct {
	client *Client
	state  *GameState
	ui     UI
	logger *log.Logger
}

// NewBridge wires the bridge onto the client. Register after TrackState
// so handlers observe the already-updated state.
func NewBridge(c *Client, state *GameState, ui UI, logger *log.Logger) *Bridge {
	b := &Bridge{
		client: c,
		state:  state,
		ui:     ui,
		logger: logger.WithPrefix("bridge"),
	}
	b.setupEventHandlers()
	return b
}

func (b *Bridge) setupEventHandlers() {
	on := b.client.AddEventHandler

	on(server.MessageTypeHelloResponse, b.handleHelloResponse)
	on(server.MessageTypeRoomCreated, b.handleRoomCreated)
	on(server.MessageTypeRoomJoined, b.handleRoomJoined)
	on(server.MessageTypeRoomLeft, b.handleRoomLeft)
	on(server.MessageTypeRoomList, b.handleRoomList)
	on(server.MessageTypeError, b.handleError)

	on(server.MessageType(game.EventPlayerJoined), b.handlePlayerJoined)
	on(server.MessageType(game.EventPlayerLeft), b.handlePlayerLeft)
	on(server.MessageType(game.EventPlayerKicked), b.handlePlayerKicked)
	on(server.MessageType(game.EventLeaderChange), b.handleLeaderChanged)
	on(server.MessageType(game.EventGameStarted), b.handleGameStarted)
	on(server.MessageType(game.EventPublicState), b.handlePublicState)
	on(server.MessageType(game.EventPrivateHand), b.handlePrivateHand)
	on(server.MessageType(game.EventCardPlayed), b.handleCardPlayed)
	on(server.MessageType(game.EventCardDrawn), b.handleCardDrawn)
	on(server.MessageType(game.EventTurnChanged), b.handleTurnChanged)
	on(server.MessageType(game.EventOneCalled), b.handleOneCalled)
	on(server.MessageType(game.EventOneCaught), b.handleOneCaught)
	on(server.MessageType(game.EventGameEnded), b.handleGameEnded)
	on(server.MessageType(game.EventError), b.handleGameError)
	on(server.MessageType(game.EventChat), b.handleChat)
	on(server.MessageType(game.EventRoomClosed), b.handleRoomClosed)
}

// nickname resolves a seat id against the tracked state.
func (b *Bridge) nickname(seatID string) string {
	for _, seat := range b.state.Public().Seats {
		if seat.SeatID == seatID {
			return seat.Nickname
		}
	}
	return seatID
}

func (b *Bridge) refreshSidebar() {
	b.ui.SetPublic(b.state.Public(), b.client.RoomCode(), b.client.SeatID())
}

// ---- event handlers ----

func (b *Bridge) handleHelloResponse(msg *server.Message) {
	var data server.HelloResponseData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	if data.Success {
		b.ui.AddLogEntry(fmt.Sprintf("Connected as %s", data.UserID))
	} else {
		b.ui.AddLogEntry(fmt.Sprintf("Login failed: %s", data.Error))
	}
}

func (b *Bridge) handleRoomCreated(msg *server.Message) {
	var data server.RoomCreatedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("Created room %s, share the code to invite players", data.RoomCode))
	b.refreshSidebar()
}

func (b *Bridge) handleRoomJoined(msg *server.Message) {
	var data server.RoomJoinedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("Joined room %s", data.RoomCode))
	if len(data.Hand) > 0 {
		b.ui.SetHand(data.Hand)
	}
	b.refreshSidebar()
}

func (b *Bridge) handleRoomLeft(msg *server.Message) {
	b.ui.AddLogEntry("Left room")
	b.ui.SetHand(nil)
	b.refreshSidebar()
}

func (b *Bridge) handleRoomClosed(msg *server.Message) {
	b.ui.AddLogEntry("Room closed")
	b.ui.SetHand(nil)
	b.refreshSidebar()
}

func (b *Bridge) handleRoomList(msg *server.Message) {
	var data server.RoomListData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	if len(data.Rooms) == 0 {
		b.ui.AddLogEntry("No open rooms, 'create' to open one")
		return
	}
	b.ui.AddLogEntry("Open rooms:")
	for _, room := range data.Rooms {
		b.ui.AddLogEntry(fmt.Sprintf("  %s: %d/%d players (%s)",
			room.RoomCode, room.Players, room.MaxPlayers, room.Status))
	}
}

func (b *Bridge) handlePlayerJoined(msg *server.Message) {
	var data game.PlayerJoined
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("%s joined", data.Seat.Nickname))
}

func (b *Bridge) handlePlayerLeft(msg *server.Message) {
	var data game.PlayerLeft
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("%s left", b.nickname(data.SeatID)))
}

func (b *Bridge) handlePlayerKicked(msg *server.Message) {
	var data game.PlayerKicked
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("%s was kicked", b.nickname(data.SeatID)))
}

func (b *Bridge) handleLeaderChanged(msg *server.Message) {
	var data game.LeaderChanged
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("%s now leads the room", b.nickname(data.NewSeatID)))
}

func (b *Bridge) handleGameStarted(msg *server.Message) {
	b.handlePublicState(msg)
	b.ui.AddLogEntry("")
	b.ui.AddLogEntry(HeaderLine("Game started"))
	if top := b.state.Public().TopCard; top != nil {
		b.ui.AddLogEntry(fmt.Sprintf("First card: %s", b.ui.FormatCard(*top)))
	}
}

func (b *Bridge) handlePublicState(msg *server.Message) {
	b.refreshSidebar()
}

func (b *Bridge) handlePrivateHand(msg *server.Message) {
	var data game.PrivateHand
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	if data.SeatID == b.client.SeatID() {
		b.ui.SetHand(data.Cards)
	}
}

func (b *Bridge) handleCardPlayed(msg *server.Message) {
	var data game.CardPlayed
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	entry := fmt.Sprintf("%s played %s", b.nickname(data.SeatID), b.ui.FormatCard(data.Card))
	if data.ChosenColor != nil {
		entry += fmt.Sprintf(" and chose %s", *data.ChosenColor)
	}
	b.ui.AddLogEntry(entry)
}

func (b *Bridge) handleCardDrawn(msg *server.Message) {
	var data game.CardDrawn
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	noun := "cards"
	if data.Count == 1 {
		noun = "card"
	}
	b.ui.AddLogEntry(fmt.Sprintf("%s drew %d %s", b.nickname(data.SeatID), data.Count, noun))
}

func (b *Bridge) handleTurnChanged(msg *server.Message) {
	var data game.TurnChanged
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	if data.CurrentSeatID == b.client.SeatID() {
		b.ui.AddLogEntry("Your turn")
	}
}

func (b *Bridge) handleOneCalled(msg *server.Message) {
	var data game.OneCalled
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("%s calls ONE!", b.nickname(data.SeatID)))
}

func (b *Bridge) handleOneCaught(msg *server.Message) {
	var data game.OneCaught
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	target := b.nickname(data.SeatID)
	if data.ByCaller != "" {
		b.ui.AddLogEntry(fmt.Sprintf("%s caught %s without a ONE call, %s draws %d",
			b.nickname(data.ByCaller), target, target, data.Penalty))
	} else {
		b.ui.AddLogEntry(fmt.Sprintf("%s forgot to call ONE and draws %d", target, data.Penalty))
	}
}

func (b *Bridge) handleGameEnded(msg *server.Message) {
	var data game.GameEnded
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry("")
	b.ui.AddLogEntry(HeaderLine("Game over"))
	for _, rank := range data.Rankings {
		b.ui.AddLogEntry(fmt.Sprintf("%d. %s (+%d pts, %d cards left)",
			rank.Position, b.nickname(rank.SeatID), rank.PointsEarned, rank.RemainingCards))
	}
	b.ui.AddLogEntry("'reset' returns the room to the lobby")
}

func (b *Bridge) handleGameError(msg *server.Message) {
	var data game.ErrorEvent
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("Rejected [%s]: %s", data.Code, data.Message))
}

func (b *Bridge) handleError(msg *server.Message) {
	var data server.ErrorData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("Server error [%s]: %s", data.Code, data.Message))
}

func (b *Bridge) handleChat(msg *server.Message) {
	var data game.ChatMessage
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	b.ui.AddLogEntry(fmt.Sprintf("<%s> %s", data.Nickname, data.Text))
}

// HeaderLine renders a section divider for the log.
func HeaderLine(title string) string {
	return fmt.Sprintf("=== %s ===", title)
}

// ---- command loop ----

// CommandLoop reads commands from the UI until the user quits. Runs on
// its own goroutine; returns when the user asks to leave.
func (b *Bridge) CommandLoop() {
	for {
		action, args, cont, err := b.ui.WaitForAction()
		if err != nil {
			b.logger.Error("Error waiting for action", "error", err)
			continue
		}
		if !cont || action == "quit" || action == "exit" {
			b.ui.SendQuitSignal()
			return
		}
		if action == "" {
			continue
		}
		if err := b.Dispatch(action, args); err != nil {
			b.ui.AddLogEntry(fmt.Sprintf("Error: %s", err))
		}
	}
}

// Dispatch executes a single parsed command.
func (b *Bridge) Dispatch(action string, args []string) error {
	switch action {
	case "help", "h", "?":
		b.printHelp()
		return nil
	case "create":
		private := len(args) > 0 && args[0] == "private"
		return b.client.CreateRoom(server.CreateRoomData{IsPrivate: private})
	case "join":
		if len(args) == 0 {
			return fmt.Errorf("usage: join <code>")
		}
		return b.client.JoinRoom(strings.ToUpper(args[0]))
	case "leave":
		return b.client.LeaveRoom()
	case "rooms", "list":
		return b.client.ListRooms()
	case "start":
		return b.client.StartGame()
	case "play", "p":
		return b.playCommand(args)
	case "draw", "d":
		return b.client.DrawCard()
	case "one", "uno":
		return b.client.CallOne()
	case "catch":
		if len(args) == 0 {
			return fmt.Errorf("usage: catch <player>")
		}
		seatID, err := b.resolveSeat(args[0])
		if err != nil {
			return err
		}
		return b.client.CatchNoOne(seatID)
	case "addbot", "bot":
		return b.client.AddBot()
	case "removebot":
		if len(args) == 0 {
			return fmt.Errorf("usage: removebot <player>")
		}
		seatID, err := b.resolveSeat(args[0])
		if err != nil {
			return err
		}
		return b.client.RemoveBot(seatID)
	case "kick":
		if len(args) == 0 {
			return fmt.Errorf("usage: kick <player>")
		}
		seatID, err := b.resolveSeat(args[0])
		if err != nil {
			return err
		}
		return b.client.KickPlayer(seatID)
	case "leader":
		if len(args) == 0 {
			return fmt.Errorf("usage: leader <player>")
		}
		seatID, err := b.resolveSeat(args[0])
		if err != nil {
			return err
		}
		return b.client.TransferLeader(seatID)
	case "reset":
		return b.client.ResetGame()
	case "say", "chat":
		if len(args) == 0 {
			return fmt.Errorf("usage: say <text>")
		}
		return b.client.Chat(strings.Join(args, " "))
	default:
		return fmt.Errorf("unknown command %q ('help' lists commands)", action)
	}
}

// playCommand plays the n-th card of the hand, with an optional color
// for wilds: "play 3 green".
func (b *Bridge) playCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: play <card number> [color]")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid card number %q", args[0])
	}
	hand := b.state.Hand()
	if idx < 1 || idx > len(hand) {
		return fmt.Errorf("card number out of range (1-%d)", len(hand))
	}
	chosen := hand[idx-1]

	var color *card.Color
	if len(args) > 1 {
		parsed, err := card.ParseColor(strings.ToUpper(args[1]))
		if err != nil || parsed == card.Wild {
			return fmt.Errorf("invalid color %q (red, yellow, green, blue)", args[1])
		}
		color = &parsed
	}
	if chosen.Kind.IsWild() && color == nil {
		return fmt.Errorf("%s needs a color: play %d <color>", chosen, idx)
	}

	return b.client.PlayCard(chosen.ID, color)
}

// resolveSeat matches a nickname (case-insensitive) or seat id.
func (b *Bridge) resolveSeat(name string) (string, error) {
	lower := strings.ToLower(name)
	for _, seat := range b.state.Public().Seats {
		if strings.ToLower(seat.Nickname) == lower || seat.SeatID == name {
			return seat.SeatID, nil
		}
	}
	return "", fmt.Errorf("no player named %q", name)
}

func (b *Bridge) printHelp() {
	for _, line := range []string{
		"Commands:",
		"  create [private]   open a new room",
		"  join <code>        join a room by code",
		"  rooms              list open rooms",
		"  leave              leave the current room",
		"  start              start the game (leader)",
		"  play <n> [color]   play the n-th card of your hand",
		"  draw               draw a card, ends your turn",
		"  one                call ONE on your second-to-last card",
		"  catch <player>     catch a player who forgot to call ONE",
		"  addbot             add a bot (leader)",
		"  removebot <player> remove a bot (leader)",
		"  kick <player>      kick a player (leader)",
		"  leader <player>    transfer leadership",
		"  reset              return a finished game to the lobby",
		"  say <text>         chat with the room",
		"  quit               disconnect and exit",
	} {
		b.ui.AddLogEntry(line)
	}
}
