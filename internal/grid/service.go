// Package grid is the editing surface around the validation engine: creating
// problems, placing causes on the grid, and rewriting them. The HTTP API and
// the CLI both go through it.
package grid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/store"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// NewProblem is the input of CreateProblem.
type NewProblem struct {
	Title    string   `json:"title" validate:"required,max=255"`
	Question string   `json:"question" validate:"required"`
	Mode     string   `json:"mode" validate:"omitempty,mode"`
	Tags     []string `json:"tags" validate:"omitempty,max=3,unique,dive,required,max=10"`
}

// NewCause is the input of AddCause. Mode defaults to the problem's mode.
type NewCause struct {
	QuestionID string `json:"question_id" validate:"required"`
	Row        int    `json:"row" validate:"min=1"`
	Column     int    `json:"column" validate:"min=0"`
	Mode       string `json:"mode" validate:"omitempty,mode"`
	Cause      string `json:"cause"`
}

// CauseUpdate is the input of SetCause.
type CauseUpdate struct {
	Cause string `json:"cause"`
}

// Detail is a problem together with its grid.
type Detail struct {
	Problem types.Problem `json:"question"`
	Cells   []types.Cell  `json:"causes"`
}

// InputError reports a request the service refused to act on.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// IsInputError reports whether err is an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Validator runs one validation pass over a problem.
type Validator interface {
	Validate(ctx context.Context, problemID string) ([]types.Cell, error)
}

// Service wraps a store with input checks. It holds no state of its own.
type Service struct {
	store      store.Store
	engine     Validator
	validate   *validator.Validate
	maxColumns int
}

// New returns a Service. maxColumns bounds the column of new causes.
func New(st store.Store, engine Validator, maxColumns int) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		_, err := types.ParseMode(fl.Field().String())
		return err == nil
	})
	return &Service{store: st, engine: engine, validate: v, maxColumns: maxColumns}
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, fe := range fields {
			if fe.Tag() == "unique" && fe.Field() == "Tags" {
				return &InputError{Err: types.ErrDuplicateTag}
			}
		}
	}
	return &InputError{Err: err}
}

// CreateProblem stores a new problem. Its grid starts empty.
func (s *Service) CreateProblem(ctx context.Context, in NewProblem) (types.Problem, error) {
	if in.Tags != nil {
		tags := make([]string, len(in.Tags))
		for i, t := range in.Tags {
			tags[i] = strings.TrimSpace(t)
		}
		in.Tags = tags
	}
	if err := s.check(in); err != nil {
		return types.Problem{}, err
	}
	mode, _ := types.ParseMode(in.Mode)
	p, err := s.store.CreateProblem(ctx, types.Problem{
		Title:    strings.TrimSpace(in.Title),
		Question: strings.TrimSpace(in.Question),
		Mode:     mode,
		Tags:     in.Tags,
	})
	if err != nil {
		return types.Problem{}, fmt.Errorf("create problem: %w", err)
	}
	logging.Store("created problem %s (%s)", p.ID, p.Mode)
	return p, nil
}

// Get returns a problem and its cells ordered by (column, row).
func (s *Service) Get(ctx context.Context, problemID string) (Detail, error) {
	p, err := s.store.GetProblem(ctx, problemID)
	if err != nil {
		return Detail{}, err
	}
	cells, err := s.store.ListCells(ctx, problemID)
	if err != nil {
		return Detail{}, fmt.Errorf("list cells: %w", err)
	}
	if cells == nil {
		cells = []types.Cell{}
	}
	return Detail{Problem: p, Cells: cells}, nil
}

// Recent returns up to limit problems, newest first. limit <= 0 means all.
func (s *Service) Recent(ctx context.Context, limit int) ([]types.Problem, error) {
	all, err := s.store.ListProblems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	out := make([]types.Problem, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

// DeleteProblem removes a problem and its grid.
func (s *Service) DeleteProblem(ctx context.Context, problemID string) error {
	if err := s.store.DeleteProblem(ctx, problemID); err != nil {
		return err
	}
	logging.Store("deleted problem %s", problemID)
	return nil
}

// AddCause places a new, unvalidated cause on the grid.
func (s *Service) AddCause(ctx context.Context, in NewCause) (types.Cell, error) {
	if err := s.check(in); err != nil {
		return types.Cell{}, err
	}
	if s.maxColumns > 0 && in.Column >= s.maxColumns {
		return types.Cell{}, &InputError{Err: fmt.Errorf("column %s is outside the grid (max %d columns)",
			types.ColumnLabel(in.Column), s.maxColumns)}
	}
	p, err := s.store.GetProblem(ctx, in.QuestionID)
	if err != nil {
		return types.Cell{}, err
	}
	mode := p.Mode
	if in.Mode != "" {
		mode, _ = types.ParseMode(in.Mode)
	}
	c, err := s.store.CreateCell(ctx, types.Cell{
		ProblemID: p.ID,
		Row:       in.Row,
		Column:    in.Column,
		Mode:      mode,
		Cause:     strings.TrimSpace(in.Cause),
	})
	if err != nil {
		return types.Cell{}, err
	}
	logging.StoreDebug("problem %s: added %s", p.ID, c.Label())
	return c, nil
}

// SetCause rewrites a cause's text. The cell and every cell below it in the
// same column go back to unvalidated with no feedback, so the next run
// re-decides the chain from the edited cell down.
func (s *Service) SetCause(ctx context.Context, problemID, causeID string, in CauseUpdate) (types.Cell, error) {
	c, err := s.store.GetCellByID(ctx, problemID, causeID)
	if err != nil {
		return types.Cell{}, err
	}
	return s.rewrite(ctx, c, in.Cause)
}

// SetCauseAt rewrites the cause at (row, column).
func (s *Service) SetCauseAt(ctx context.Context, problemID string, row, column int, text string) (types.Cell, error) {
	c, ok, err := s.store.GetCell(ctx, problemID, row, column)
	if err != nil {
		return types.Cell{}, err
	}
	if !ok {
		return types.Cell{}, types.ErrNotFound{Entity: "cause", ID: fmt.Sprintf("%s%d", types.ColumnLabel(column), row)}
	}
	return s.rewrite(ctx, c, text)
}

func (s *Service) rewrite(ctx context.Context, c types.Cell, text string) (types.Cell, error) {
	c.Cause = strings.TrimSpace(text)
	c.Validated = false
	c.IsRoot = false
	c.Feedback = ""
	if err := s.store.SaveCell(ctx, c); err != nil {
		return types.Cell{}, fmt.Errorf("save %s: %w", c.Label(), err)
	}

	column, err := s.store.ColumnCells(ctx, c.ProblemID, c.Column, store.Filter{})
	if err != nil {
		return types.Cell{}, fmt.Errorf("list column %s: %w", types.ColumnLabel(c.Column), err)
	}
	reset := 0
	for _, below := range column {
		if below.Row <= c.Row || (!below.Validated && !below.IsRoot && below.Feedback == "") {
			continue
		}
		below.Validated = false
		below.IsRoot = false
		below.Feedback = ""
		if err := s.store.SaveCell(ctx, below); err != nil {
			return types.Cell{}, fmt.Errorf("reset %s: %w", below.Label(), err)
		}
		reset++
	}
	logging.StoreDebug("problem %s: rewrote %s, reset %d below", c.ProblemID, c.Label(), reset)
	return c, nil
}

// Validate runs the engine over the problem.
func (s *Service) Validate(ctx context.Context, problemID string) ([]types.Cell, error) {
	return s.engine.Validate(ctx, problemID)
}
