package protocol

// Kind is the one-byte type code prefixing every frame on the wire.
type Kind uint8

const (
	KindMessage    Kind = 1
	KindChangeRoom Kind = 2
	KindFight      Kind = 3
	KindPVPFight   Kind = 4
	KindLoot       Kind = 5
	KindStart      Kind = 6
	KindError      Kind = 7
	KindAccept     Kind = 8
	KindRoom       Kind = 9
	KindCharacter  Kind = 10
	KindGame       Kind = 11
	KindLeave      Kind = 12
	KindConnection Kind = 13
	KindVersion    Kind = 14
)

// catalogEntry holds the three facts the generic completeness check needs
// for every kind whose variable-length field (if any) sits in the
// conventional place: the last two bytes of the static header.
type catalogEntry struct {
	staticBlockSize int // bytes from (and including) the type code to the end of the static header
	hasVarBlock     bool
}

var catalog = map[Kind]catalogEntry{
	KindMessage:    {staticBlockSize: 67, hasVarBlock: true}, // special-cased: length precedes the names
	KindChangeRoom: {staticBlockSize: 3, hasVarBlock: false},
	KindFight:      {staticBlockSize: 1, hasVarBlock: false},
	KindPVPFight:   {staticBlockSize: 33, hasVarBlock: false},
	KindLoot:       {staticBlockSize: 33, hasVarBlock: false},
	KindStart:      {staticBlockSize: 1, hasVarBlock: false},
	KindError:      {staticBlockSize: 4, hasVarBlock: true},
	KindAccept:     {staticBlockSize: 2, hasVarBlock: false},
	KindRoom:       {staticBlockSize: 37, hasVarBlock: true},
	KindCharacter:  {staticBlockSize: 48, hasVarBlock: true},
	KindGame:       {staticBlockSize: 7, hasVarBlock: true},
	KindLeave:      {staticBlockSize: 1, hasVarBlock: false},
	KindConnection: {staticBlockSize: 37, hasVarBlock: true},
	KindVersion:    {staticBlockSize: 5, hasVarBlock: true}, // special-cased: n_ext sub-lengths, not a single tail
}

// StaticBlockSize returns the number of bytes, counting the type code,
// that make up k's fixed header.
func StaticBlockSize(k Kind) int { return catalog[k].staticBlockSize }

// HasVarBlock reports whether k carries a variable-length tail.
func HasVarBlock(k Kind) bool { return catalog[k].hasVarBlock }

// Frame is any decoded or to-be-encoded Lurk message.
type Frame interface {
	Kind() Kind
}
