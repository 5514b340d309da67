package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/grid"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/ratelimit"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// validateCmd runs one validation pass
var validateCmd = &cobra.Command{
	Use:   "validate [question-id]",
	Short: "Validate the pending causes of a question",
	Long: `Runs one validation pass over the question's grid and prints the result.

The run goes through the same rate-limit gate as the HTTP endpoint, keyed
by --user when given and by the local guest identity otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// showCmd prints a grid
var showCmd = &cobra.Command{
	Use:   "show [question-id]",
	Short: "Print a question and its grid",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Manage questions",
}

var questionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a question",
	Long: `Creates a question with an empty grid.

Example:
  maams question create --title "Penjualan" --question "Mengapa penjualan turun?" --mode PRIBADI`,
	RunE: runQuestionCreate,
}

var questionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent questions",
	Args:  cobra.NoArgs,
	RunE:  runQuestionList,
}

var questionDeleteCmd = &cobra.Command{
	Use:   "delete [question-id]",
	Short: "Delete a question and its grid",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuestionDelete,
}

var causeCmd = &cobra.Command{
	Use:   "cause",
	Short: "Edit causes on a grid",
}

var causeAddCmd = &cobra.Command{
	Use:   "add [question-id] [cell] [text]",
	Short: "Add a cause at a cell such as A1 or B3",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runCauseAdd,
}

var causeSetCmd = &cobra.Command{
	Use:   "set [question-id] [cell] [text]",
	Short: "Rewrite the cause at a cell; it becomes pending again",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runCauseSet,
}

func init() {
	validateCmd.Flags().String("user", "", "Authenticated user id for the rate-limit gate")

	questionCreateCmd.Flags().String("title", "", "Question title (required)")
	questionCreateCmd.Flags().String("question", "", "Problem statement (required)")
	questionCreateCmd.Flags().String("mode", "PRIBADI", "PRIBADI or PENGAWASAN")
	questionCreateCmd.Flags().StringSlice("tags", nil, "Up to three distinct tags, comma separated")
	questionCreateCmd.MarkFlagRequired("title")
	questionCreateCmd.MarkFlagRequired("question")
	questionCmd.AddCommand(questionCreateCmd)
	questionListCmd.Flags().Int("limit", 10, "Maximum number of questions (0 for all)")
	questionCmd.AddCommand(questionListCmd)
	questionCmd.AddCommand(questionDeleteCmd)

	causeCmd.AddCommand(causeAddCmd)
	causeCmd.AddCommand(causeSetCmd)
}

// cliIdentity is the guest identity of local CLI runs.
const cliIdentity = "127.0.0.1"

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	id := ratelimit.GuestIdentity(cliIdentity)
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		id = ratelimit.UserIdentity(user)
	}
	if err := admit(ctx, a.limiter, "/validator/validate/"+args[0], id); err != nil {
		return err
	}

	if _, err := a.grid.Validate(ctx, args[0]); err != nil {
		return err
	}
	d, err := a.grid.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderDetail(d, cfg.Engine.MaxColumns))
	return nil
}

// admit asks the gate; a cache failure admits.
func admit(ctx context.Context, l *ratelimit.Limiter, path string, id ratelimit.Identity) error {
	d, err := l.Decide(ctx, path, id)
	if err != nil {
		logging.RateLimitWarn("cache unavailable for %s, admitting: %v", d.Key, err)
		return nil
	}
	if !d.Allowed {
		return types.ErrRateLimited
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.grid.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderDetail(d, cfg.Engine.MaxColumns))
	return nil
}

func runQuestionCreate(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	title, _ := cmd.Flags().GetString("title")
	question, _ := cmd.Flags().GetString("question")
	mode, _ := cmd.Flags().GetString("mode")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	p, err := a.grid.CreateProblem(cmd.Context(), grid.NewProblem{Title: title, Question: question, Mode: mode, Tags: tags})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), p.ID)
	return nil
}

func runQuestionList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	problems, err := a.grid.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderProblems(problems))
	return nil
}

func runQuestionDelete(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.grid.DeleteProblem(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runCauseAdd(cmd *cobra.Command, args []string) error {
	row, col, err := types.ParseCoordinate(args[1])
	if err != nil {
		return err
	}
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.grid.AddCause(cmd.Context(), grid.NewCause{
		QuestionID: args[0],
		Row:        row,
		Column:     col,
		Cause:      strings.Join(args[2:], " "),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c.Label(), c.ID)
	return nil
}

func runCauseSet(cmd *cobra.Command, args []string) error {
	row, col, err := types.ParseCoordinate(args[1])
	if err != nil {
		return err
	}
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.grid.SetCauseAt(cmd.Context(), args[0], row, col, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c.Label(), c.ID)
	return nil
}
