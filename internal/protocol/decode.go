package protocol

import "encoding/binary"

// Status is the outcome of trying to decode one frame from a byte view.
type Status int

const (
	// StatusPending means try again once more bytes have arrived.
	StatusPending Status = iota
	// StatusBad means the leading byte matches no kind accepted from
	// clients (outbound-only codes included); the connection that
	// produced it must be poisoned.
	StatusBad
	// StatusComplete means a full frame was decoded; the caller consumes
	// the reported byte count itself.
	StatusComplete
)

// pollStatus is the per-kind result used internally to build Status.
type pollStatus int

const (
	pollNoMatch pollStatus = iota
	pollPartial
	pollComplete
)

// genericPoll implements the completeness check from §4.3: the variable
// tail's length, when present, is always the final two bytes of the
// static header.
func genericPoll(view []byte, code byte, staticSize int, hasVar bool) pollStatus {
	if len(view) == 0 {
		return pollPartial
	}
	if view[0] != code {
		return pollNoMatch
	}
	if len(view) < staticSize {
		return pollPartial
	}
	if !hasVar {
		return pollComplete
	}
	l := binary.LittleEndian.Uint16(view[staticSize-2 : staticSize])
	if len(view) >= staticSize+int(l) {
		return pollComplete
	}
	return pollPartial
}

type kindOps struct {
	poll func(view []byte) pollStatus
	read func(view []byte) (Frame, int)
}

var registry = map[Kind]kindOps{
	KindMessage: {
		poll: pollMessage,
		read: readMessage,
	},
	KindChangeRoom: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindChangeRoom), 3, false) },
		read: readChangeRoom,
	},
	KindFight: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindFight), 1, false) },
		read: func(view []byte) (Frame, int) { return Fight{}, 1 },
	},
	KindPVPFight: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindPVPFight), 33, false) },
		read: readPVPFight,
	},
	KindLoot: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindLoot), 33, false) },
		read: readLoot,
	},
	KindStart: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindStart), 1, false) },
		read: func(view []byte) (Frame, int) { return Start{}, 1 },
	},
	KindError: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindError), 4, true) },
		read: readError,
	},
	KindAccept: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindAccept), 2, false) },
		read: readAccept,
	},
	KindRoom: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindRoom), 37, true) },
		read: readRoom,
	},
	KindCharacter: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindCharacter), 48, true) },
		read: readCharacter,
	},
	KindGame: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindGame), 7, true) },
		read: readGame,
	},
	KindLeave: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindLeave), 1, false) },
		read: func(view []byte) (Frame, int) { return Leave{}, 1 },
	},
	KindConnection: {
		poll: func(view []byte) pollStatus { return genericPoll(view, byte(KindConnection), 37, true) },
		read: readConnection,
	},
	KindVersion: {
		poll: pollVersion,
		read: readVersion,
	},
}

// inboundDispatchOrder is the fixed trial order from §4.3. Codes are
// distinct, so the order only affects which kind's poll runs first; it
// never changes the outcome.
var inboundDispatchOrder = []Kind{
	KindMessage, KindFight, KindChangeRoom, KindPVPFight, KindLoot,
	KindStart, KindCharacter, KindLeave, KindVersion,
}

// PollNext tries each inbound-accepted kind in turn against view and
// reports whether a frame is ready, more bytes are needed, or the
// leading byte is unrecognized. It does not mutate view; callers consume
// n bytes from their buffer themselves once Status is StatusComplete.
func PollNext(view []byte) (frame Frame, n int, status Status) {
	if len(view) == 0 {
		return nil, 0, StatusPending
	}
	for _, k := range inboundDispatchOrder {
		ops := registry[k]
		switch ops.poll(view) {
		case pollNoMatch:
			continue
		case pollPartial:
			return nil, 0, StatusPending
		case pollComplete:
			f, consumed := ops.read(view)
			return f, consumed, StatusComplete
		}
	}
	return nil, 0, StatusBad
}

// DecodeKind runs kind's poll/read pair directly against view, regardless
// of whether kind is one PollNext would ever reach on a live connection.
// It exists so tests can exercise round-trip and partiality properties
// for outbound-only kinds (Error, Accept, Room, Game, Connection) that
// the server itself never receives from a client.
func DecodeKind(k Kind, view []byte) (frame Frame, n int, status Status) {
	ops, ok := registry[k]
	if !ok {
		return nil, 0, StatusBad
	}
	switch ops.poll(view) {
	case pollNoMatch:
		return nil, 0, StatusBad
	case pollPartial:
		return nil, 0, StatusPending
	default:
		f, consumed := ops.read(view)
		return f, consumed, StatusComplete
	}
}

// --- Message: length field precedes the two names, so the generic
// last-two-bytes-of-header convention doesn't apply. ---

func pollMessage(view []byte) pollStatus {
	if len(view) == 0 {
		return pollPartial
	}
	if view[0] != byte(KindMessage) {
		return pollNoMatch
	}
	if len(view) < 3 {
		return pollPartial
	}
	l := binary.LittleEndian.Uint16(view[1:3])
	total := 1 + 2 + NameSize + NameSize + int(l)
	if len(view) >= total {
		return pollComplete
	}
	return pollPartial
}

func readMessage(view []byte) (Frame, int) {
	l := int(binary.LittleEndian.Uint16(view[1:3]))
	var recipient, sender Name
	copy(recipient[:], view[3:3+NameSize])
	copy(sender[:], view[3+NameSize:3+2*NameSize])
	bodyStart := 3 + 2*NameSize
	body := make([]byte, l)
	copy(body, view[bodyStart:bodyStart+l])
	return Message{Recipient: recipient, Sender: sender, Body: body}, bodyStart + l
}

func readChangeRoom(view []byte) (Frame, int) {
	return ChangeRoom{RoomNumber: binary.LittleEndian.Uint16(view[1:3])}, 3
}

func readPVPFight(view []byte) (Frame, int) {
	var target Name
	copy(target[:], view[1:33])
	return PVPFight{Target: target}, 33
}

func readLoot(view []byte) (Frame, int) {
	var target Name
	copy(target[:], view[1:33])
	return Loot{Target: target}, 33
}

func readError(view []byte) (Frame, int) {
	code := view[1]
	l := int(binary.LittleEndian.Uint16(view[2:4]))
	text := make([]byte, l)
	copy(text, view[4:4+l])
	return ErrorMsg{Code: code, Text: text}, 4 + l
}

func readAccept(view []byte) (Frame, int) {
	return Accept{Code: view[1]}, 2
}

func readRoom(view []byte) (Frame, int) {
	number := binary.LittleEndian.Uint16(view[1:3])
	var name Name
	copy(name[:], view[3:3+NameSize])
	descStart := 3 + NameSize
	l := int(binary.LittleEndian.Uint16(view[descStart : descStart+2]))
	desc := make([]byte, l)
	copy(desc, view[descStart+2:descStart+2+l])
	return Room{Number: number, Name: name, Description: desc}, descStart + 2 + l
}

func readCharacter(view []byte) (Frame, int) {
	var name Name
	copy(name[:], view[1:1+NameSize])
	off := 1 + NameSize
	flags := CharacterFlags(view[off])
	off++
	attack := binary.LittleEndian.Uint16(view[off : off+2])
	off += 2
	defense := binary.LittleEndian.Uint16(view[off : off+2])
	off += 2
	regen := binary.LittleEndian.Uint16(view[off : off+2])
	off += 2
	health := int16(binary.LittleEndian.Uint16(view[off : off+2]))
	off += 2
	gold := binary.LittleEndian.Uint16(view[off : off+2])
	off += 2
	room := binary.LittleEndian.Uint16(view[off : off+2])
	off += 2
	l := int(binary.LittleEndian.Uint16(view[off : off+2]))
	off += 2
	desc := make([]byte, l)
	copy(desc, view[off:off+l])
	return Character{
		Name: name, Flags: flags, Attack: attack, Defense: defense, Regen: regen,
		Health: health, Gold: gold, RoomNumber: room, Description: desc,
	}, off + l
}

func readGame(view []byte) (Frame, int) {
	initial := binary.LittleEndian.Uint16(view[1:3])
	limit := binary.LittleEndian.Uint16(view[3:5])
	l := int(binary.LittleEndian.Uint16(view[5:7]))
	desc := make([]byte, l)
	copy(desc, view[7:7+l])
	return Game{InitialPoints: initial, StatLimit: limit, Description: desc}, 7 + l
}

func readConnection(view []byte) (Frame, int) {
	room := binary.LittleEndian.Uint16(view[1:3])
	var name Name
	copy(name[:], view[3:3+NameSize])
	descStart := 3 + NameSize
	l := int(binary.LittleEndian.Uint16(view[descStart : descStart+2]))
	desc := make([]byte, l)
	copy(desc, view[descStart+2:descStart+2+l])
	return Connection{RoomNumber: room, RoomName: name, Description: desc}, descStart + 2 + l
}

// --- Version: n_ext framed sub-items, not a single length-prefixed tail. ---

func pollVersion(view []byte) pollStatus {
	if len(view) == 0 {
		return pollPartial
	}
	if view[0] != byte(KindVersion) {
		return pollNoMatch
	}
	if len(view) < 5 {
		return pollPartial
	}
	nExt := binary.LittleEndian.Uint16(view[3:5])
	cursor := 5
	for i := 0; i < int(nExt); i++ {
		if cursor+2 > len(view) {
			return pollPartial
		}
		extLen := int(binary.LittleEndian.Uint16(view[cursor : cursor+2]))
		cursor += 2
		if cursor+extLen > len(view) {
			return pollPartial
		}
		cursor += extLen
	}
	return pollComplete
}

func readVersion(view []byte) (Frame, int) {
	major, minor := view[1], view[2]
	nExt := binary.LittleEndian.Uint16(view[3:5])
	cursor := 5
	exts := make([][]byte, 0, nExt)
	for i := 0; i < int(nExt); i++ {
		extLen := int(binary.LittleEndian.Uint16(view[cursor : cursor+2]))
		cursor += 2
		ext := make([]byte, extLen)
		copy(ext, view[cursor:cursor+extLen])
		exts = append(exts, ext)
		cursor += extLen
	}
	return Version{Major: major, Minor: minor, Extensions: exts}, cursor
}
