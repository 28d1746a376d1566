package app

import (
	"strings"

	"practice-engine/internal/domain"
)

// Assembler holds the two token pools of the command builder. Moves never create,
// duplicate or drop a token: available and placed together always equal the original pieces.
// It is not safe for concurrent use; ToolGame serializes access.
type Assembler struct {
	original  []string
	available []string
	placed    []string
}

func NewAssembler(pieces []string) *Assembler {
	a := &Assembler{}
	a.Reset(pieces)
	return a
}

// Reset reloads both pools from pieces with nothing placed.
func (a *Assembler) Reset(pieces []string) {
	a.original = append([]string(nil), pieces...)
	a.available = append([]string(nil), pieces...)
	a.placed = nil
}

// Place moves the token at from in the available pool to the end of the placed pool.
// piece must match the token at that index so a stale front-end cannot move the wrong one.
func (a *Assembler) Place(piece string, from int) error {
	if from < 0 || from >= len(a.available) {
		return domain.ErrPieceOutOfRange
	}
	if a.available[from] != piece {
		return domain.ErrPieceMismatch
	}
	a.available = append(a.available[:from], a.available[from+1:]...)
	a.placed = append(a.placed, piece)
	return nil
}

// Unplace moves the token at index at back to the end of the available pool.
func (a *Assembler) Unplace(at int) error {
	if at < 0 || at >= len(a.placed) {
		return domain.ErrPieceOutOfRange
	}
	piece := a.placed[at]
	a.placed = append(a.placed[:at], a.placed[at+1:]...)
	a.available = append(a.available, piece)
	return nil
}

// Command is the space-joined placed pool in assembly order.
func (a *Assembler) Command() string {
	return strings.Join(a.placed, " ")
}

func (a *Assembler) Available() []string { return append([]string(nil), a.available...) }

func (a *Assembler) Placed() []string { return append([]string(nil), a.placed...) }

func (a *Assembler) Pieces() []string { return append([]string(nil), a.original...) }
