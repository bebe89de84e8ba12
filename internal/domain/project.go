package domain

import "strings"

// ProjectID identifies a project. Zero means none.
type ProjectID int64

// Board is the fixed four-column pipeline owned by one project.
type Board struct {
	Columns [ColumnCount]Column
}

// NewBoard returns an empty board with every pipeline column present.
func NewBoard() Board {
	var b Board
	for idx, name := range Pipeline {
		b.Columns[idx] = Column{Name: name}
	}
	return b
}

// Column returns the column for name.
func (b *Board) Column(name ColumnName) *Column {
	if !name.Valid() {
		return nil
	}
	return &b.Columns[name]
}

// TaskCount returns the number of tasks across all columns.
func (b Board) TaskCount() int {
	total := 0
	for _, col := range b.Columns {
		total += len(col.Tasks)
	}
	return total
}

func (b Board) clone() Board {
	var out Board
	for idx := range b.Columns {
		out.Columns[idx] = b.Columns[idx].clone()
	}
	return out
}

// Project is a named board.
type Project struct {
	ID    ProjectID
	Name  string
	Board Board
}

// NewProject validates and constructs a project with an empty board.
func NewProject(id ProjectID, name string) (Project, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return Project{}, ErrInvalidID
	}
	if name == "" {
		return Project{}, ErrEmptyName
	}
	return Project{ID: id, Name: name, Board: NewBoard()}, nil
}

// Rename replaces the display name.
func (p *Project) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	p.Name = name
	return nil
}

func (p Project) clone() Project {
	out := p
	out.Board = p.Board.clone()
	return out
}
