// Package scripthost adapts the event and write queues into the flat,
// string-keyed record shape an embedded script engine expects, and
// defines the Host interface the server loop drives each tick. No
// interpreter is wired in here: any engine satisfying Host and reading
// from an Adapter is admissible, and the core is fully testable by
// driving the queues directly instead.
package scripthost

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/corvid-labs/lurkd/internal/client"
	"github.com/corvid-labs/lurkd/internal/protocol"
	"github.com/corvid-labs/lurkd/internal/queue"
)

// EventRecord is the flattened shape Events.poll() hands to a script.
// Only the fields relevant to Type are populated; the rest are left at
// their zero value.
type EventRecord struct {
	IsSome bool
	ID     uint64
	Type   string // "join", "left", "message", "change_room", "fight", "pvp_fight", "loot", "start", "character", "leave", "version"

	Recipient string
	Sender    string
	Message   string

	RoomNumber uint16

	Target string

	Character CharacterRecord

	Major, Minor uint8
}

// CharacterRecord is the flattened character shape shared by EventRecord
// (inbound Character frames) and Writer.SendCharacter (outbound ones).
type CharacterRecord struct {
	Name                                       string
	Alive, JoinBattle, Monster, Started, Ready bool
	Attack, Defense, Regen                     uint16
	Health                                     int16
	Gold, RoomNumber                           uint16
	Description                                string
}

func (c CharacterRecord) flags() protocol.CharacterFlags {
	var f protocol.CharacterFlags
	f.Set(protocol.FlagAlive, c.Alive)
	f.Set(protocol.FlagJoinBattle, c.JoinBattle)
	f.Set(protocol.FlagMonster, c.Monster)
	f.Set(protocol.FlagStarted, c.Started)
	f.Set(protocol.FlagReady, c.Ready)
	return f
}

func characterRecordFromFlags(name string, flags protocol.CharacterFlags, attack, defense, regen uint16, health int16, gold, room uint16, desc string) CharacterRecord {
	return CharacterRecord{
		Name:        name,
		Alive:       flags.Has(protocol.FlagAlive),
		JoinBattle:  flags.Has(protocol.FlagJoinBattle),
		Monster:     flags.Has(protocol.FlagMonster),
		Started:     flags.Has(protocol.FlagStarted),
		Ready:       flags.Has(protocol.FlagReady),
		Attack:      attack,
		Defense:     defense,
		Regen:       regen,
		Health:      health,
		Gold:        gold,
		RoomNumber:  room,
		Description: desc,
	}
}

// WriteMessage is one item enqueued on the write queue: a fully built
// outbound frame plus the client it is destined for.
type WriteMessage struct {
	TargetID client.ID
	Frame    protocol.Frame
}

// Writer is the handle a script uses to enqueue outbound frames, with
// one method per outbound kind. The two conflicting send_message
// bindings in the source are resolved into distinct SendMessage and
// SendError calls.
type Writer interface {
	SendMessage(target client.ID, recipient, sender, body string)
	SendError(target client.ID, code uint8, text string)
	SendAccept(target client.ID, code uint8)
	SendRoom(target client.ID, number uint16, name, description string)
	SendCharacter(target client.ID, rec CharacterRecord)
	SendGame(target client.ID, initialPoints, statLimit uint16, description string)
	SendConnection(target client.ID, roomNumber uint16, roomName, description string)
	SendVersion(target client.ID, major, minor uint8, extensions []string)
}

// Host is driven once per server loop iteration. A single Tick call
// must poll the event queue to exhaustion (or however much the engine
// chooses) and enqueue any resulting writes before returning.
type Host interface {
	Tick(ctx context.Context) error
}

// Adapter owns the two queues shared between the server loop and the
// script, and is both the Events handle (via Poll) and the Writer
// handle published into the script's global environment.
type Adapter struct {
	events *queue.Queue[client.Event]
	writes *queue.Queue[WriteMessage]
}

// New wires an Adapter to the given event and write queues. The queues
// are the only shared mutable process state; they are owned by the
// server loop and shared by reference here, not hidden behind a
// singleton.
func New(events *queue.Queue[client.Event], writes *queue.Queue[WriteMessage]) *Adapter {
	return &Adapter{events: events, writes: writes}
}

var _ Writer = (*Adapter)(nil)

// Poll pops the next client event and translates it into the flat
// record shape, padding/lossy-decoding Name values to strings on the
// way out. ok is false once the queue is drained.
func (a *Adapter) Poll() (EventRecord, bool) {
	ev, ok := a.events.TryDequeue()
	if !ok {
		return EventRecord{}, false
	}

	rec := EventRecord{IsSome: true, ID: uint64(ev.ClientID)}
	switch ev.Kind {
	case client.EventJoin:
		rec.Type = "join"
		return rec, true
	case client.EventLeft:
		rec.Type = "left"
		return rec, true
	}

	switch f := ev.Frame.(type) {
	case protocol.Message:
		rec.Type = "message"
		rec.Recipient = f.Recipient.String()
		rec.Sender = f.Sender.String()
		rec.Message = string(f.Body)
	case protocol.ChangeRoom:
		rec.Type = "change_room"
		rec.RoomNumber = f.RoomNumber
	case protocol.Fight:
		rec.Type = "fight"
	case protocol.PVPFight:
		rec.Type = "pvp_fight"
		rec.Target = f.Target.String()
	case protocol.Loot:
		rec.Type = "loot"
		rec.Target = f.Target.String()
	case protocol.Start:
		rec.Type = "start"
	case protocol.Character:
		rec.Type = "character"
		rec.Character = characterRecordFromFlags(
			f.Name.String(), f.Flags, f.Attack, f.Defense, f.Regen,
			f.Health, f.Gold, f.RoomNumber, string(f.Description),
		)
	case protocol.Leave:
		rec.Type = "leave"
	case protocol.Version:
		rec.Type = "version"
		rec.Major, rec.Minor = f.Major, f.Minor
	default:
		rec.Type = fmt.Sprintf("unknown(%d)", ev.Frame.Kind())
	}
	return rec, true
}

func (a *Adapter) enqueue(target client.ID, f protocol.Frame) {
	a.writes.Enqueue(WriteMessage{TargetID: target, Frame: f})
}

// SendMessage enqueues an outbound chat line. Resolved from the
// source's first, chat-oriented send_message binding.
func (a *Adapter) SendMessage(target client.ID, recipient, sender, body string) {
	a.enqueue(target, protocol.Message{
		Recipient: protocol.NameFromString(recipient),
		Sender:    protocol.NameFromString(sender),
		Body:      []byte(body),
	})
}

// SendError enqueues an Error frame. Resolved from the source's second,
// error-reporting send_message binding.
func (a *Adapter) SendError(target client.ID, code uint8, text string) {
	a.enqueue(target, protocol.ErrorMsg{Code: code, Text: []byte(text)})
}

func (a *Adapter) SendAccept(target client.ID, code uint8) {
	a.enqueue(target, protocol.Accept{Code: code})
}

func (a *Adapter) SendRoom(target client.ID, number uint16, name, description string) {
	a.enqueue(target, protocol.Room{
		Number: number, Name: protocol.NameFromString(name), Description: []byte(description),
	})
}

func (a *Adapter) SendCharacter(target client.ID, rec CharacterRecord) {
	a.enqueue(target, protocol.Character{
		Name: protocol.NameFromString(rec.Name), Flags: rec.flags(),
		Attack: rec.Attack, Defense: rec.Defense, Regen: rec.Regen,
		Health: rec.Health, Gold: rec.Gold, RoomNumber: rec.RoomNumber,
		Description: []byte(rec.Description),
	})
}

func (a *Adapter) SendGame(target client.ID, initialPoints, statLimit uint16, description string) {
	a.enqueue(target, protocol.Game{
		InitialPoints: initialPoints, StatLimit: statLimit, Description: []byte(description),
	})
}

func (a *Adapter) SendConnection(target client.ID, roomNumber uint16, roomName, description string) {
	a.enqueue(target, protocol.Connection{
		RoomNumber: roomNumber, RoomName: protocol.NameFromString(roomName), Description: []byte(description),
	})
}

func (a *Adapter) SendVersion(target client.ID, major, minor uint8, extensions []string) {
	exts := make([][]byte, len(extensions))
	for i, e := range extensions {
		exts[i] = []byte(e)
	}
	a.enqueue(target, protocol.Version{Major: major, Minor: minor, Extensions: exts})
}

// ResolveEntryPoint finds the script entry point under moduleDir. It
// matches main.* rather than a hardcoded extension so the adapter stays
// agnostic to which scripting language a given Host embeds.
func ResolveEntryPoint(moduleDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(moduleDir, "main.*"))
	if err != nil {
		return "", fmt.Errorf("scripthost: resolve entry point: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("scripthost: no main.* entry point found under %s", moduleDir)
	}
	return matches[0], nil
}
