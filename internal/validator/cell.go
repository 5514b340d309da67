package validator

import (
	"context"
	"fmt"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/feedback"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/llm"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/metrics"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/store"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// validateCell decides one cell against its parent and persists the result.
// Empty cells are returned untouched.
func (e *Engine) validateCell(ctx context.Context, c types.Cell, problem types.Problem, parent types.Parent) (types.Cell, error) {
	if c.IsEmpty() {
		return c, nil
	}

	verdict, err := e.adapter.Verdict(ctx, causeSystem, causeUser(c, parent), llm.ModeNormal)
	if err != nil {
		return c, fmt.Errorf("validate %s: %w", c.Label(), err)
	}

	result := metrics.CellAccepted
	if verdict == llm.Accept {
		c.Validated = true
		c.Feedback = ""
		if _, deeper := parent.(types.CellParent); deeper {
			if c, err = e.detectRoot(ctx, c, problem); err != nil {
				return c, err
			}
			if c.IsRoot {
				result = metrics.CellRoot
			}
		}
	} else {
		c.Validated = false
		c.IsRoot = false
		kind, err := e.classifyRejection(ctx, c, parent)
		if err != nil {
			return c, err
		}
		c.Feedback = feedback.Rejection(kind, c.Row, c.Column)
		result = metrics.CellRejected
	}

	if err := e.store.SaveCell(ctx, c); err != nil {
		return c, fmt.Errorf("save %s: %w", c.Label(), err)
	}
	e.recorder.CellProcessed(result)
	logging.EngineDebug("problem %s: %s %s", problem.ID, c.Label(), result)
	return c, nil
}

// detectRoot decides whether an accepted cell ends its column. A root needs
// at least one validated ancestor in the column.
func (e *Engine) detectRoot(ctx context.Context, c types.Cell, problem types.Problem) (types.Cell, error) {
	c.IsRoot = false

	validated, err := e.store.ColumnCells(ctx, problem.ID, c.Column, store.Filter{Validated: true, NonEmpty: true})
	if err != nil {
		return c, fmt.Errorf("column %s: %w", types.ColumnLabel(c.Column), err)
	}
	count := 1
	for _, v := range validated {
		if v.ID != c.ID {
			count++
		}
	}
	if count < 2 {
		return c, nil
	}

	if corruptionRelated(c.Cause) {
		logging.EngineDebug("problem %s: %s matches a corruption term", problem.ID, c.Label())
	} else {
		verdict, err := e.adapter.Verdict(ctx, rootSystem, rootUser(c, problem), llm.ModeRoot)
		if err != nil {
			return c, fmt.Errorf("root check %s: %w", c.Label(), err)
		}
		if verdict != llm.Accept {
			return c, nil
		}
	}

	category, err := e.adapter.Categorize(ctx, categorySystem, categoryUser(c))
	if err != nil {
		return c, fmt.Errorf("categorize %s: %w", c.Label(), err)
	}
	c.IsRoot = true
	c.Feedback = feedback.RootFound(c.Column, rootCategory(category))
	return c, nil
}

func rootCategory(c llm.Category) feedback.Category {
	switch c {
	case llm.CategoryTahta:
		return feedback.CategoryTahta
	case llm.CategoryCinta:
		return feedback.CategoryCinta
	default:
		return feedback.CategoryHarta
	}
}

// classifyRejection asks why a cell was rejected. Answers that do not fit the
// row's position yield KindUnknown, which renders the generic fallback.
func (e *Engine) classifyRejection(ctx context.Context, c types.Cell, parent types.Parent) (feedback.Kind, error) {
	system, user := rejectPrompts(c, parent)
	diagnosis, err := e.adapter.Diagnose(ctx, system, user)
	if err != nil {
		return feedback.KindUnknown, fmt.Errorf("diagnose %s: %w", c.Label(), err)
	}

	_, firstRow := parent.(types.ProblemParent)
	switch diagnosis {
	case llm.DiagnosisNotCause:
		return feedback.KindNotCause, nil
	case llm.DiagnosisPositiveNeutral:
		return feedback.KindPositiveNeutral, nil
	case llm.DiagnosisSimilarPrevious:
		if firstRow {
			return feedback.KindUnknown, nil
		}
		return feedback.KindSimilarPrevious, nil
	default:
		return feedback.KindUnknown, nil
	}
}
