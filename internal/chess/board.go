package chess

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// ErrIllegalMove is returned when a move is not in the current legal-move set.
var ErrIllegalMove = errors.New("illegal move")

// Move is a from/to pair with an optional promotion piece.
type Move struct {
	From  nchess.Square
	To    nchess.Square
	Promo nchess.PieceType
}

// ParseMove decodes long algebraic (UCI) notation such as "e2e4" or "e7e8q".
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("malformed move %q", s)
	}
	from, ok := parseSquare(s[0:2])
	if !ok {
		return Move{}, fmt.Errorf("malformed origin in %q", s)
	}
	to, ok := parseSquare(s[2:4])
	if !ok {
		return Move{}, fmt.Errorf("malformed destination in %q", s)
	}
	mv := Move{From: from, To: to, Promo: nchess.NoPieceType}
	if len(s) == 5 {
		switch s[4] {
		case 'q':
			mv.Promo = nchess.Queen
		case 'r':
			mv.Promo = nchess.Rook
		case 'b':
			mv.Promo = nchess.Bishop
		case 'n':
			mv.Promo = nchess.Knight
		default:
			return Move{}, fmt.Errorf("malformed promotion in %q", s)
		}
	}
	return mv, nil
}

// String returns the UCI form of the move.
func (m Move) String() string {
	out := m.From.String() + m.To.String()
	switch m.Promo {
	case nchess.Queen:
		out += "q"
	case nchess.Rook:
		out += "r"
	case nchess.Bishop:
		out += "b"
	case nchess.Knight:
		out += "n"
	}
	return out
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 {
		return nchess.NoSquare, false
	}
	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(file-'a'), nchess.Rank(rank-'1')), true
}

// SquareAt converts a screen cell (row 0 is rank 8, col 0 is file a) to a square.
func SquareAt(row, col int) (nchess.Square, bool) {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(col), nchess.Rank(7-row)), true
}

// TerminalKind classifies the end state of a position.
type TerminalKind int

const (
	NotTerminal TerminalKind = iota
	Checkmate
	Stalemate
	Draw
)

// Terminal describes whether and how the game ended.
type Terminal struct {
	Kind   TerminalKind
	Winner nchess.Color
	Method string
}

func (t Terminal) Over() bool { return t.Kind != NotTerminal }

// Board owns the authoritative position. It is not safe for concurrent use;
// callers sequence every mutation through a single owner.
type Board struct {
	game *nchess.Game
}

func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// NewBoardFromFEN builds a board for read-only analysis of a snapshot.
func NewBoardFromFEN(fen string) (*Board, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

func (b *Board) Reset() {
	b.game = nchess.NewGame()
}

func (b *Board) FEN() string { return b.game.FEN() }

func (b *Board) Turn() nchess.Color { return b.game.Position().Turn() }

func (b *Board) Ply() int { return len(b.game.Moves()) }

func (b *Board) PieceAt(sq nchess.Square) nchess.Piece {
	return b.game.Position().Board().Piece(sq)
}

// LegalMoves recomputes the legal-move set from the current position.
func (b *Board) LegalMoves() []Move {
	valid := b.game.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, Move{From: mv.S1(), To: mv.S2(), Promo: mv.Promo()})
	}
	return out
}

// Resolve matches m against the legal-move set. A pawn reaching the last rank
// without a promotion piece is promoted to a queen.
func (b *Board) Resolve(m Move) (Move, bool) {
	var queening Move
	found := false
	for _, legal := range b.LegalMoves() {
		if legal.From != m.From || legal.To != m.To {
			continue
		}
		if legal.Promo == m.Promo {
			return legal, true
		}
		if m.Promo == nchess.NoPieceType && legal.Promo == nchess.Queen {
			queening = legal
			found = true
		}
	}
	return queening, found
}

// Apply plays m if it is legal. On ErrIllegalMove the position is untouched.
func (b *Board) Apply(m Move) error {
	legal, ok := b.Resolve(m)
	if !ok {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	pos := b.game.Position()
	decoded, err := nchess.UCINotation{}.Decode(pos, legal.String())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	if err := b.game.Move(decoded, nil); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIllegalMove, m, err)
	}
	return nil
}

// Terminal reports the end state as detected by the rules library.
func (b *Board) Terminal() Terminal {
	outcome := b.game.Outcome()
	if outcome == nchess.NoOutcome {
		return Terminal{Kind: NotTerminal}
	}
	method := b.game.Method()
	t := Terminal{Method: methodName(method)}
	switch {
	case method == nchess.Checkmate:
		t.Kind = Checkmate
		if outcome == nchess.WhiteWon {
			t.Winner = nchess.White
		} else {
			t.Winner = nchess.Black
		}
	case method == nchess.Stalemate:
		t.Kind = Stalemate
	default:
		t.Kind = Draw
	}
	return t
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.InsufficientMaterial:
		return "insufficient_material"
	case nchess.FivefoldRepetition:
		return "fivefold_repetition"
	case nchess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case nchess.ThreefoldRepetition:
		return "threefold_repetition"
	case nchess.FiftyMoveRule:
		return "fifty_move_rule"
	default:
		return strings.ToLower(m.String())
	}
}

// LastMove returns the most recent move, if any.
func (b *Board) LastMove() (Move, bool) {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return Move{}, false
	}
	last := moves[len(moves)-1]
	return Move{From: last.S1(), To: last.S2(), Promo: last.Promo()}, true
}

func (b *Board) MovesUCI() []string {
	moves := b.game.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, Move{From: mv.S1(), To: mv.S2(), Promo: mv.Promo()}.String())
	}
	return out
}

func (b *Board) MovesSAN() []string {
	positions := b.game.Positions()
	moves := b.game.Moves()
	notation := nchess.AlgebraicNotation{}
	out := make([]string, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			out[i] = notation.Encode(positions[i], mv)
		}
	}
	return out
}

var (
	ecoOnce sync.Once
	eco     *opening.BookECO
)

func ecoBook() *opening.BookECO {
	ecoOnce.Do(func() { eco = opening.NewBookECO() })
	return eco
}

// Opening returns the ECO code and title of the line played so far.
func (b *Board) Opening() (string, string) {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return "", ""
	}
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if o := book.Find(moves); o != nil {
		return o.Code(), o.Title()
	}
	return "", ""
}

// PGN renders the move list with the result tag.
func (b *Board) PGN() string { return b.game.String() }

// Material sums standard piece values per color.
func (b *Board) Material() (white, black int) {
	board := b.game.Position().Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece {
				continue
			}
			if piece.Color() == nchess.White {
				white += pieceValues[piece.Type()]
			} else {
				black += pieceValues[piece.Type()]
			}
		}
	}
	return white, black
}

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

var glyphs = map[nchess.Color]map[nchess.PieceType]string{
	nchess.White: {
		nchess.Pawn: "♙", nchess.Knight: "♘", nchess.Bishop: "♗",
		nchess.Rook: "♖", nchess.Queen: "♕", nchess.King: "♔",
	},
	nchess.Black: {
		nchess.Pawn: "♟", nchess.Knight: "♞", nchess.Bishop: "♝",
		nchess.Rook: "♜", nchess.Queen: "♛", nchess.King: "♚",
	},
}

// Glyph returns the unicode figure for a piece, or "" for an empty square.
func Glyph(p nchess.Piece) string {
	if p == nchess.NoPiece {
		return ""
	}
	return glyphs[p.Color()][p.Type()]
}

// Glyphs lays the position out as screen rows, row 0 being rank 8.
func (b *Board) Glyphs() [8][8]string {
	var grid [8][8]string
	board := b.game.Position().Board()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq, _ := SquareAt(row, col)
			grid[row][col] = Glyph(board.Piece(sq))
		}
	}
	return grid
}

// PieceName returns the capitalised English name of a piece type.
func PieceName(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "King"
	case nchess.Queen:
		return "Queen"
	case nchess.Rook:
		return "Rook"
	case nchess.Bishop:
		return "Bishop"
	case nchess.Knight:
		return "Knight"
	case nchess.Pawn:
		return "Pawn"
	default:
		return ""
	}
}

// ColorName returns "white" or "black".
func ColorName(c nchess.Color) string {
	if c == nchess.Black {
		return "black"
	}
	return "white"
}
