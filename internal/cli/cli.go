// Package cli implements the reportrag command line: interactive chat,
// one-shot questions and document scoring against an in-process router.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reportrag/internal/agents"
	"reportrag/internal/app"
	"reportrag/internal/config"
	"reportrag/internal/ingest"
	"reportrag/internal/logging"
	"reportrag/internal/models"
	"reportrag/internal/util"
)

const defaultDocsDir = "data/documents"

// Root builds the reportrag command tree.
func Root(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "reportrag",
		Short: "Ask questions about and score sustainability reports",
		Long: `reportrag answers questions grounded in uploaded reports and a reference
library, and scores reports against a rubric.

Configuration is read from .env and REPORTRAG_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "Override REPORTRAG_LOG_LEVEL")

	root.AddCommand(ChatCmd())
	root.AddCommand(AskCmd())
	root.AddCommand(ScoreCmd())
	return root
}

type sessionFlags struct {
	docsDir          string
	mode             string
	priority         []string
	includeReference bool
}

func (f *sessionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.docsDir, "docs", "d", defaultDocsDir, "Directory of user documents (pdf, txt, md)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Routing mode: analysis, scoring or explore (default: auto)")
	cmd.Flags().StringSliceVar(&f.priority, "priority", nil, "Documents whose full text leads every analysis context")
	cmd.Flags().BoolVar(&f.includeReference, "reference", true, "Include the reference library in analysis")
}

// ChatCmd creates the interactive chat command.
func ChatCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive Q&A over a document directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := models.ParseMode(flags.mode)
			if err != nil {
				return err
			}
			a, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := openSession(cmd.Context(), a, flags, mode); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Report Q&A is running.")
			return Chat(cmd.Context(), a.Router, cmd.InOrStdin(), cmd.OutOrStdout(), mode)
		},
	}
	flags.bind(cmd)
	return cmd
}

// AskCmd creates the one-shot question command.
func AskCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a single question over a document directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := models.ParseMode(flags.mode)
			if err != nil {
				return err
			}
			a, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := openSession(cmd.Context(), a, flags, mode); err != nil {
				return err
			}
			res := a.Router.Route(cmd.Context(), args[0], mode)
			PrintResult(cmd.OutOrStdout(), res)
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

// ScoreCmd creates the scoring command.
func ScoreCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "score <file>...",
		Short: "Score reports against the rubric",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results := make([]models.ScoreResult, 0, len(args))
			for _, path := range args {
				fmt.Fprintf(cmd.ErrOrStderr(), "Scoring document: %s\n", path)
				results = append(results, a.Router.ScoreDocument(cmd.Context(), path))
			}
			report := agents.FormatReport(results)
			fmt.Fprintln(cmd.OutOrStdout(), report)
			if outPath != "" {
				if err := util.WriteTextAtomic(outPath, report+"\n"); err != nil {
					return err
				}
			}
			for _, r := range results {
				if !r.Failed() {
					return nil
				}
			}
			return errors.New("no document could be scored")
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also write the markdown report to this file")
	return cmd
}

func bootstrap(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, logger)
}

// openSession loads every supported document under the docs directory, plus
// the reference library when requested, and starts explore if asked for.
func openSession(ctx context.Context, a *app.App, flags sessionFlags, mode models.Mode) error {
	userPaths, err := ingest.ListSupported(flags.docsDir)
	if err != nil {
		return fmt.Errorf("document directory: %w", err)
	}
	if len(userPaths) == 0 {
		return fmt.Errorf("no supported documents found in %s", flags.docsDir)
	}
	var referencePaths []string
	if flags.includeReference {
		if referencePaths, err = ingest.ListSupported(a.Config.ReferenceDir); err != nil {
			a.Logger.Warn("reference library unavailable", zap.String("dir", a.Config.ReferenceDir), zap.Error(err))
		}
	}
	all := append(append([]string{}, referencePaths...), userPaths...)
	vectorize := ingest.ShouldVectorize(all, a.Config.VectorizeMaxFiles, a.Config.VectorizeMaxBytes)
	a.Logger.Info("loading documents", zap.Int("user_files", len(userPaths)), zap.Int("reference_files", len(referencePaths)), zap.Bool("vectorize", vectorize))
	if !a.Router.LoadDocuments(ctx, userPaths, referencePaths, vectorize) {
		return models.ErrDocumentsNotLoaded
	}
	if len(flags.priority) > 0 {
		a.Router.SetPriorityFiles(resolvePriority(flags.docsDir, flags.priority))
	}
	if mode == models.ModeExplore {
		return a.Router.StartExplore(ctx)
	}
	return nil
}

// resolvePriority treats bare names as relative to the docs directory.
func resolvePriority(docsDir string, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, err := os.Stat(n); err == nil {
			out = append(out, filepath.Clean(n))
			continue
		}
		out = append(out, util.SafeJoin(docsDir, n))
	}
	return out
}
