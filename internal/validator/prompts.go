package validator

import (
	"fmt"
	"strings"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// =============================================================================
// NORMAL
// =============================================================================

const causeSystem = "You are an AI model. You are asked to determine whether the given cause is the cause of the given problem."

func causeUser(cell types.Cell, parent types.Parent) string {
	switch p := parent.(type) {
	case types.ProblemParent:
		return fmt.Sprintf("Is '%s' the cause of this question: '%s'? Answer only with True/False", cell.Cause, p.Problem.Question)
	default:
		return fmt.Sprintf("Is '%s' the cause of '%s'? Answer only with True/False", cell.Cause, parent.Text())
	}
}

// =============================================================================
// ROOT
// =============================================================================

const rootSystem = "You are an AI model. You are asked to determine whether the given cause is a root cause of the given problem. " +
	"A root cause is the fundamental underlying reason that, if addressed, would prevent the problem's recurrence. " +
	"In a cause-and-effect chain analysis, a root cause is the deepest level where effective intervention can occur. " +
	"Not all direct causes are root causes. To identify a root cause, consider: " +
	"1) Is this cause something that can be directly addressed? " +
	"2) If this cause were eliminated, would it prevent the problem from recurring? " +
	"3) Is this the most fundamental level of the issue in this causal chain? " +
	"Respond only with True if this is indeed a root cause, or False if this is an intermediate cause that has deeper underlying causes."

func rootUser(cell types.Cell, problem types.Problem) string {
	return fmt.Sprintf("Is the cause '%s' the fundamental reason behind the problem '%s'? Answer only with True or False.", cell.Cause, problem.Question)
}

// =============================================================================
// ROOT_TYPE
// =============================================================================

const categorySystem = "You are an AI model. Your task is to categorize the root cause into one of three corruption categories: " +
	"'Harta' for corruption of wealth, 'Tahta' for corruption of power, or 'Cinta' for corruption of love. " +
	"You must choose one of these categories, even if the fit seems partial. " +
	"Answer ONLY with '1' for Harta, '2' for Tahta, or '3' for Cinta."

func categoryUser(cell types.Cell) string {
	return fmt.Sprintf("Please categorize the root cause '%s' into one of the following corruption categories: "+
		"'Harta' (corruption of wealth/money/resources), 'Tahta' (corruption of power/authority/position), or 'Cinta' (corruption of love/relationships/desires). "+
		"Examples: "+
		"- Bribery, embezzlement, or financial misconduct = Harta (1) "+
		"- Abuse of authority, nepotism, or power-seeking = Tahta (2) "+
		"- Personal relationships affecting decisions, favoritism based on personal bonds = Cinta (3) "+
		"Answer ONLY with '1' for Harta, '2' for Tahta, or '3' for Cinta.", cell.Cause)
}

// =============================================================================
// FALSE
// =============================================================================

const rejectFirstRowSystem = "You are an AI model analyzing the first level of causes in a root cause analysis. " +
	"You are asked to determine the relationship between problem and cause. " +
	"Please respond ONLY WITH '1' if the cause is NOT THE CAUSE of the question, ONLY WITH '2' if the cause is positive or neutral"

const rejectDeeperRowSystem = "You are an AI model analyzing cause-and-effect relationships in a root cause analysis procedure. When evaluating causes, consider that: " +
	"1) Some causes may appear similar to causes in other columns as we get deeper in the analysis " +
	"2) Causes should be specific to their parent cause in the same column, not from other columns " +
	"3) As analysis progresses, causes often converge toward common root issues " +
	"4) Each column represents an independent causal chain that may eventually converge " +
	"5) The 'previous cause' refers to the immediate parent cause in the same column (e.g., A2 is the previous cause for A3). " +
	"Please respond only with numerical codes as specified in the user prompt."

func rejectPrompts(cell types.Cell, parent types.Parent) (system, user string) {
	col := types.ColumnLabel(cell.Column)
	if p, ok := parent.(types.ProblemParent); ok {
		return rejectFirstRowSystem, fmt.Sprintf("'%s' is the FALSE cause for this question '%s' (in column %s, first row). "+
			"Now determine if it is false because it is NOT THE CAUSE or because it is a POSITIVE OR NEUTRAL CAUSE. "+
			"Answer ONLY with '1' if it is NOT THE CAUSE, '2' if it is POSITIVE OR NEUTRAL.",
			cell.Cause, p.Problem.Question, col)
	}
	return rejectDeeperRowSystem, fmt.Sprintf("'%s' is the FALSE cause for '%s' (in column %s, row %d, with previous cause in row %d). "+
		"Now determine if it is false because it is NOT THE CAUSE, because it is a POSITIVE OR NEUTRAL cause, or because it is SIMILAR TO THE PREVIOUS cause. "+
		"Remember that 'previous cause' refers to the cause directly above in the same column, not from other columns. "+
		"Answer ONLY WITH '1' if it is NOT THE CAUSE, ONLY WITH '2' if it is POSITIVE OR NEUTRAL, or ONLY WITH '3' if it is SIMILAR TO THE PREVIOUS cause.",
		cell.Cause, parent.Text(), col, cell.Row, cell.Row-1)
}

// =============================================================================
// KEYWORDS
// =============================================================================

// corruptionTerms short-circuit the ROOT call when found in a cause.
var corruptionTerms = []string{
	"korupsi", "suap", "sogok", "pungli", "pungutan liar",
	"penyalahgunaan wewenang", "nepotisme", "kolusi",
	"gratifikasi", "pemalsuan", "penggelapan", "penyelewengan",
	"pemerasan", "mark up", "penyimpangan",
}

// corruptionRelated reports whether text mentions a corruption term, ignoring case.
func corruptionRelated(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range corruptionTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
