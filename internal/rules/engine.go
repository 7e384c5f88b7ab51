package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable board snapshot. It is only ever replaced, never edited.
type Position struct {
	fen string
}

// ParsePosition validates a FEN and stores it in the engine's canonical serialization
// with the en-passant square dropped unless a capture there is legal, so two
// positions compare equal when they describe the same board.
func ParsePosition(fen string) (Position, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return Position{}, err
	}
	return Position{fen: canonicalFEN(g)}, nil
}

func StartPosition() Position {
	p, err := ParsePosition(StartFEN)
	if err != nil {
		return Position{fen: StartFEN}
	}
	return p
}

func (p Position) FEN() string {
	if p.fen == "" {
		return StartFEN
	}
	return p.fen
}

func (p Position) IsZero() bool             { return p.fen == "" }
func (p Position) Equal(other Position) bool { return p.FEN() == other.FEN() }
func (p Position) String() string            { return p.FEN() }

// Engine is the rules capability the session depends on. Every call takes the
// position explicitly; implementations keep no per-session state.
type Engine interface {
	// LegalDestinations is empty unless local is to move and owns the piece on from.
	LegalDestinations(pos Position, local Side, from Square) []Square
	// Complete fills in the queen promotion for a pawn move onto the last rank.
	Complete(pos Position, m Move) Move
	// Apply returns the position after m and its SAN, or ErrIllegalMove.
	Apply(pos Position, m Move) (Position, string, error)
	// Resolve turns an advisory suggestion into a Move. coord wins over san when both are set.
	Resolve(pos Position, coord, san string) (Move, error)
	Turn(pos Position) Side
	IsTerminal(pos Position) bool
	TerminalReason(pos Position) TerminalReason
	InCheck(pos Position) bool
	KingSquare(pos Position, side Side) Square
	Pieces(pos Position) map[Square]Piece
}

// Adapter implements Engine on top of corentings/chess.
type Adapter struct{}

func NewAdapter() *Adapter { return &Adapter{} }

var _ Engine = (*Adapter)(nil)

func gameFromFEN(fen string) (*nchess.Game, error) {
	s := strings.TrimSpace(fen)
	if s == "" {
		return nil, fmt.Errorf("%w: empty fen", ErrBadPosition)
	}
	opt, err := nchess.FEN(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPosition, err)
	}
	return nchess.NewGame(opt), nil
}

func (a *Adapter) game(pos Position) *nchess.Game {
	g, err := gameFromFEN(pos.FEN())
	if err != nil {
		// Position values only come from ParsePosition, so this is the zero value at worst.
		return nchess.NewGame()
	}
	return g
}

func (a *Adapter) LegalDestinations(pos Position, local Side, from Square) []Square {
	if !from.Valid() {
		return nil
	}
	g := a.game(pos)
	cur := g.Position()
	if sideOf(cur.Turn()) != local {
		return nil
	}
	src := toSquare(from)
	piece := cur.Board().Piece(src)
	if piece == nchess.NoPiece || sideOf(piece.Color()) != local {
		return nil
	}

	seen := make(map[Square]struct{})
	var out []Square
	for _, mv := range g.ValidMoves() {
		if mv.S1() != src {
			continue
		}
		dst := fromSquare(mv.S2())
		if _, ok := seen[dst]; ok {
			continue
		}
		seen[dst] = struct{}{}
		out = append(out, dst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *Adapter) Apply(pos Position, m Move) (Position, string, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return pos, "", fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	g := a.game(pos)
	before := g.Position()
	m = withDefaultPromotion(before.Board(), m)

	if !isValid(g, m) {
		return pos, "", fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	mv, err := nchess.UCINotation{}.Decode(before, m.String())
	if err != nil {
		return pos, "", fmt.Errorf("%w: %s: %v", ErrIllegalMove, m, err)
	}
	san := nchess.AlgebraicNotation{}.Encode(before, mv)
	if err := g.Move(mv, nil); err != nil {
		return pos, "", fmt.Errorf("%w: %s: %v", ErrIllegalMove, m, err)
	}
	return Position{fen: canonicalFEN(g)}, san, nil
}

func (a *Adapter) Complete(pos Position, m Move) Move {
	if !m.From.Valid() || !m.To.Valid() {
		return m
	}
	return withDefaultPromotion(a.game(pos).Position().Board(), m)
}

func (a *Adapter) Resolve(pos Position, coord, san string) (Move, error) {
	if strings.TrimSpace(coord) != "" {
		return ParseMove(coord)
	}
	if strings.TrimSpace(san) == "" {
		return Move{}, fmt.Errorf("%w: empty suggestion", ErrBadNotation)
	}
	g := a.game(pos)
	mv, err := nchess.AlgebraicNotation{}.Decode(g.Position(), strings.TrimSpace(san))
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q: %v", ErrBadNotation, san, err)
	}
	return Move{From: fromSquare(mv.S1()), To: fromSquare(mv.S2()), Promotion: kindOf(mv.Promo())}, nil
}

func (a *Adapter) Turn(pos Position) Side {
	return sideOf(a.game(pos).Position().Turn())
}

func (a *Adapter) IsTerminal(pos Position) bool {
	return a.TerminalReason(pos) != ReasonNone
}

// TerminalReason covers checkmate, stalemate, the engine's automatic draws and the
// fifty-move rule, which the engine only offers as a claim.
func (a *Adapter) TerminalReason(pos Position) TerminalReason {
	g := a.game(pos)
	switch g.Outcome() {
	case nchess.Draw:
		return ReasonDraw
	case nchess.WhiteWon, nchess.BlackWon:
		return ReasonCheckmate
	}
	if len(g.ValidMoves()) == 0 {
		if a.InCheck(pos) {
			return ReasonCheckmate
		}
		return ReasonDraw
	}
	if halfmoveClock(pos.FEN()) >= 100 {
		return ReasonDraw
	}
	return ReasonNone
}

func (a *Adapter) InCheck(pos Position) bool {
	board := a.Pieces(pos)
	side := a.Turn(pos)
	king := findKing(board, side)
	if king == NoSquare {
		return false
	}
	return attacked(board, king, side.Opposite())
}

func (a *Adapter) KingSquare(pos Position, side Side) Square {
	return findKing(a.Pieces(pos), side)
}

func (a *Adapter) Pieces(pos Position) map[Square]Piece {
	out := make(map[Square]Piece, 32)
	for sq, p := range a.game(pos).Position().Board().SquareMap() {
		if p == nchess.NoPiece {
			continue
		}
		out[fromSquare(sq)] = Piece{Side: sideOf(p.Color()), Kind: kindOf(p.Type())}
	}
	return out
}

// InferMove finds the single move that turns prev into next and returns its SAN.
// Only placement, side to move and castling rights are compared.
func (a *Adapter) InferMove(prev, next Position) (string, bool) {
	want := boardKey(next.FEN())
	for _, mv := range a.game(prev).ValidMoves() {
		m := Move{From: fromSquare(mv.S1()), To: fromSquare(mv.S2()), Promotion: kindOf(mv.Promo())}
		after, san, err := a.Apply(prev, m)
		if err == nil && boardKey(after.FEN()) == want {
			return san, true
		}
	}
	return "", false
}

// canonicalFEN keeps the en-passant square only when a pawn can actually
// capture there, so a position compares equal regardless of whether the
// writer recorded the square after every double push.
func canonicalFEN(g *nchess.Game) string {
	fen := g.Position().String()
	fields := strings.Fields(fen)
	if len(fields) < 4 || fields[3] == "-" {
		return fen
	}
	ep, err := ParseSquare(fields[3])
	if err != nil {
		return fen
	}
	board := g.Position().Board()
	target := toSquare(ep)
	for _, mv := range g.ValidMoves() {
		if mv.S2() == target && board.Piece(mv.S1()).Type() == nchess.Pawn && mv.S1().File() != mv.S2().File() {
			return fen
		}
	}
	fields[3] = "-"
	return strings.Join(fields, " ")
}

func boardKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}

func isValid(g *nchess.Game, m Move) bool {
	src, dst := toSquare(m.From), toSquare(m.To)
	for _, mv := range g.ValidMoves() {
		if mv.S1() == src && mv.S2() == dst && kindOf(mv.Promo()) == m.Promotion {
			return true
		}
	}
	return false
}

// withDefaultPromotion completes a pawn move onto the last rank with a queen.
func withDefaultPromotion(board *nchess.Board, m Move) Move {
	if m.Promotion != NoKind {
		return m
	}
	p := board.Piece(toSquare(m.From))
	if p == nchess.NoPiece || p.Type() != nchess.Pawn {
		return m
	}
	if (p.Color() == nchess.White && m.To.Rank() == 7) || (p.Color() == nchess.Black && m.To.Rank() == 0) {
		m.Promotion = Queen
	}
	return m
}

func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}

func toSquare(s Square) nchess.Square {
	return nchess.NewSquare(nchess.File(s.File()), nchess.Rank(s.Rank()))
}

func fromSquare(sq nchess.Square) Square {
	return NewSquare(int(sq.File()), int(sq.Rank()))
}

func sideOf(c nchess.Color) Side {
	if c == nchess.Black {
		return Black
	}
	return White
}

func kindOf(pt nchess.PieceType) PieceKind {
	switch pt {
	case nchess.King:
		return King
	case nchess.Queen:
		return Queen
	case nchess.Rook:
		return Rook
	case nchess.Bishop:
		return Bishop
	case nchess.Knight:
		return Knight
	case nchess.Pawn:
		return Pawn
	default:
		return NoKind
	}
}
