package protocol

// Message is a chat line routed from one client to another (or to the room).
type Message struct {
	Recipient Name
	Sender    Name
	Body      []byte
}

func (Message) Kind() Kind { return KindMessage }

// ChangeRoom requests the sender move to a different room.
type ChangeRoom struct {
	RoomNumber uint16
}

func (ChangeRoom) Kind() Kind { return KindChangeRoom }

// Fight requests the sender's character join combat in its current room.
type Fight struct{}

func (Fight) Kind() Kind { return KindFight }

// PVPFight requests a duel against another player by name.
type PVPFight struct {
	Target Name
}

func (PVPFight) Kind() Kind { return KindPVPFight }

// Loot requests the sender collect gold from a defeated target.
type Loot struct {
	Target Name
}

func (Loot) Kind() Kind { return KindLoot }

// Start requests the game begin for the sender.
type Start struct{}

func (Start) Kind() Kind { return KindStart }

// ErrorMsg reports a protocol-level or game-level failure to a client.
type ErrorMsg struct {
	Code uint8
	Text []byte
}

func (ErrorMsg) Kind() Kind { return KindError }

// Accept acknowledges a prior action by type code.
type Accept struct {
	Code uint8
}

func (Accept) Kind() Kind { return KindAccept }

// Room describes a room's identity to a client.
type Room struct {
	Number      uint16
	Name        Name
	Description []byte
}

func (Room) Kind() Kind { return KindRoom }

// Character carries a full character snapshot, in either direction.
type Character struct {
	Name        Name
	Flags       CharacterFlags
	Attack      uint16
	Defense     uint16
	Regen       uint16
	Health      int16
	Gold        uint16
	RoomNumber  uint16
	Description []byte
}

func (Character) Kind() Kind { return KindCharacter }

// Game announces session-wide rules to a newly joined client.
type Game struct {
	InitialPoints uint16
	StatLimit     uint16
	Description   []byte
}

func (Game) Kind() Kind { return KindGame }

// Leave notifies the server the sender is disconnecting voluntarily.
type Leave struct{}

func (Leave) Kind() Kind { return KindLeave }

// Connection welcomes a client into its starting room.
type Connection struct {
	RoomNumber  uint16
	RoomName    Name
	Description []byte
}

func (Connection) Kind() Kind { return KindConnection }

// Version carries the protocol version and an optional list of named
// extensions, in either direction.
type Version struct {
	Major      uint8
	Minor      uint8
	Extensions [][]byte
}

func (Version) Kind() Kind { return KindVersion }
