package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encode writes f's wire representation to w and returns the number of
// bytes written. The byte count is deterministic for a given value of f:
// encoding the same logical frame twice always produces the same length.
func Encode(w io.Writer, f Frame) (int, error) {
	buf := make([]byte, 0, 64)
	switch m := f.(type) {
	case Message:
		buf = append(buf, byte(KindMessage))
		buf = appendUint16(buf, uint16(len(m.Body)))
		buf = append(buf, m.Recipient[:]...)
		buf = append(buf, m.Sender[:]...)
		buf = append(buf, m.Body...)
	case ChangeRoom:
		buf = append(buf, byte(KindChangeRoom))
		buf = appendUint16(buf, m.RoomNumber)
	case Fight:
		buf = append(buf, byte(KindFight))
	case PVPFight:
		buf = append(buf, byte(KindPVPFight))
		buf = append(buf, m.Target[:]...)
	case Loot:
		buf = append(buf, byte(KindLoot))
		buf = append(buf, m.Target[:]...)
	case Start:
		buf = append(buf, byte(KindStart))
	case ErrorMsg:
		buf = append(buf, byte(KindError))
		buf = append(buf, m.Code)
		buf = appendUint16(buf, uint16(len(m.Text)))
		buf = append(buf, m.Text...)
	case Accept:
		buf = append(buf, byte(KindAccept))
		buf = append(buf, m.Code)
	case Room:
		buf = append(buf, byte(KindRoom))
		buf = appendUint16(buf, m.Number)
		buf = append(buf, m.Name[:]...)
		buf = appendUint16(buf, uint16(len(m.Description)))
		buf = append(buf, m.Description...)
	case Character:
		buf = append(buf, byte(KindCharacter))
		buf = append(buf, m.Name[:]...)
		buf = append(buf, byte(m.Flags))
		buf = appendUint16(buf, m.Attack)
		buf = appendUint16(buf, m.Defense)
		buf = appendUint16(buf, m.Regen)
		buf = appendUint16(buf, uint16(m.Health))
		buf = appendUint16(buf, m.Gold)
		buf = appendUint16(buf, m.RoomNumber)
		buf = appendUint16(buf, uint16(len(m.Description)))
		buf = append(buf, m.Description...)
	case Game:
		buf = append(buf, byte(KindGame))
		buf = appendUint16(buf, m.InitialPoints)
		buf = appendUint16(buf, m.StatLimit)
		buf = appendUint16(buf, uint16(len(m.Description)))
		buf = append(buf, m.Description...)
	case Leave:
		buf = append(buf, byte(KindLeave))
	case Connection:
		buf = append(buf, byte(KindConnection))
		buf = appendUint16(buf, m.RoomNumber)
		buf = append(buf, m.RoomName[:]...)
		buf = appendUint16(buf, uint16(len(m.Description)))
		buf = append(buf, m.Description...)
	case Version:
		buf = append(buf, byte(KindVersion))
		buf = append(buf, m.Major, m.Minor)
		buf = appendUint16(buf, uint16(len(m.Extensions)))
		for _, ext := range m.Extensions {
			buf = appendUint16(buf, uint16(len(ext)))
			buf = append(buf, ext...)
		}
	default:
		return 0, fmt.Errorf("protocol: encode: unsupported frame type %T", f)
	}
	n, err := w.Write(buf)
	return n, err
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}
