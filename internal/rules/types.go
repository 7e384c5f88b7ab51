package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrBadSquare   = errors.New("invalid square")
	ErrBadPosition = errors.New("invalid position")
	ErrBadSide     = errors.New("invalid side")
	ErrBadNotation = errors.New("invalid move notation")
)

type Side int8

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Code is the single-letter form used by the server ("w" / "b").
func (s Side) Code() string {
	if s == Black {
		return "b"
	}
	return "w"
}

// Title is the capitalised name used in announcements.
func (s Side) Title() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

func (s Side) Opposite() Side {
	if s == Black {
		return White
	}
	return Black
}

func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	default:
		return White, fmt.Errorf("%w: %q", ErrBadSide, v)
	}
}

// Square indexes the board from a1 (0) to h8 (63), rank-major.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func ParseSquare(v string) (Square, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrBadSquare, v)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }
func (s Square) Valid() bool { return s >= 0 && s < 64 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

type PieceKind int8

const (
	NoKind PieceKind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

func (k PieceKind) Letter() string {
	switch k {
	case King:
		return "k"
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	case Pawn:
		return "p"
	default:
		return ""
	}
}

func parsePromotion(c byte) (PieceKind, bool) {
	switch c {
	case 'q':
		return Queen, true
	case 'r':
		return Rook, true
	case 'b':
		return Bishop, true
	case 'n':
		return Knight, true
	default:
		return NoKind, false
	}
}

type Piece struct {
	Side Side
	Kind PieceKind
}

func (p Piece) IsZero() bool { return p.Kind == NoKind }

// String renders the board-widget token, e.g. "wP" or "bK".
func (p Piece) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Side.Code() + strings.ToUpper(p.Kind.Letter())
}

// ParsePiece accepts board-widget tokens such as "wP".
func ParsePiece(v string) (Piece, bool) {
	if len(v) != 2 {
		return Piece{}, false
	}
	side, err := ParseSide(v[:1])
	if err != nil {
		return Piece{}, false
	}
	var kind PieceKind
	switch v[1] {
	case 'K':
		kind = King
	case 'Q':
		kind = Queen
	case 'R':
		kind = Rook
	case 'B':
		kind = Bishop
	case 'N':
		kind = Knight
	case 'P':
		kind = Pawn
	default:
		return Piece{}, false
	}
	return Piece{Side: side, Kind: kind}, true
}

// Move is a transient value; Promotion is NoKind unless the mover asked for one.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// String is the coordinate notation sent to the server, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	return m.From.String() + m.To.String() + m.Promotion.Letter()
}

// ParseMove parses coordinate notation ("e2e4", "e7e8q").
func ParseMove(v string) (Move, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, v)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, v)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, v)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		kind, ok := parsePromotion(s[4])
		if !ok {
			return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, v)
		}
		m.Promotion = kind
	}
	return m, nil
}

type TerminalReason int8

const (
	ReasonNone TerminalReason = iota
	ReasonCheckmate
	ReasonDraw
	ReasonServerOverride
)

func (r TerminalReason) String() string {
	switch r {
	case ReasonCheckmate:
		return "checkmate"
	case ReasonDraw:
		return "draw"
	case ReasonServerOverride:
		return "server_override"
	default:
		return "none"
	}
}

// Outcome is the finalized result of a confirmed terminal episode.
type Outcome int8

const (
	OutcomeNone Outcome = iota
	// OutcomeCheckmateWhite means white is checkmated.
	OutcomeCheckmateWhite
	OutcomeCheckmateBlack
	OutcomeDraw
	OutcomeOverride
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCheckmateWhite:
		return "checkmate-white"
	case OutcomeCheckmateBlack:
		return "checkmate-black"
	case OutcomeDraw:
		return "draw"
	case OutcomeOverride:
		return "server-override"
	default:
		return "none"
	}
}

// OutcomeFor derives the finalized outcome from the terminal reason and the side to move.
func OutcomeFor(reason TerminalReason, toMove Side) Outcome {
	switch reason {
	case ReasonCheckmate:
		if toMove == White {
			return OutcomeCheckmateWhite
		}
		return OutcomeCheckmateBlack
	case ReasonDraw:
		return OutcomeDraw
	case ReasonServerOverride:
		return OutcomeOverride
	default:
		return OutcomeNone
	}
}
