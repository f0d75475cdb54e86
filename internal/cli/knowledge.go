package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/server"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// KnowledgeCommand returns the knowledge base commands.
func KnowledgeCommand() *cli.Command {
	return &cli.Command{
		Name:    "kb",
		Aliases: []string{"knowledge"},
		Usage:   "Knowledge base operations",
		Subcommands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Show the closest questions for a query",
				ArgsUsage: "<query>",
				Action:    kbSearchAction,
			},
			{
				Name:  "learn",
				Usage: "Add a question and answer to the corpus",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "question", Aliases: []string{"q"}, Required: true},
					&cli.StringFlag{Name: "answer", Aliases: []string{"a"}, Required: true},
					&cli.StringFlag{Name: "category", Value: "general"},
				},
				Action: kbLearnAction,
			},
			{
				Name:  "init",
				Usage: "Write the built-in corpus to the configured storage",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing corpus"},
				},
				Action: kbInitAction,
			},
		},
	}
}

func kbSearchAction(ctx *cli.Context) error {
	query := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	kb, err := server.NewKnowledgeBase(ctx.Context, cfg.Knowledge, getLogger(ctx))
	if err != nil {
		return err
	}
	printResults(ctx.App.Writer, kb, query, cfg.Knowledge.AnswerThreshold)
	return nil
}

func printResults(out io.Writer, kb *knowledge_base.KnowledgeBase, query string, threshold float64) {
	results := kb.Search(query)
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching questions.")
		return
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.3f] (%s) %s\n", i+1, r.Score, r.Category, r.Question)
	}
	if results[0].Score > threshold {
		if answer, ok := kb.Answer(results[0].Question); ok {
			fmt.Fprintf(out, "\n%s\n", answer)
		}
	}
}

func kbLearnAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	kb, err := server.NewKnowledgeBase(ctx.Context, cfg.Knowledge, getLogger(ctx))
	if err != nil {
		return err
	}
	err = kb.Learn(ctx.Context, knowledge_base.Entry{
		Question: ctx.String("question"),
		Answer:   ctx.String("answer"),
		Category: ctx.String("category"),
	})
	if errors.Is(err, knowledge_base.ErrDuplicateQuestion) {
		fmt.Fprintln(ctx.App.Writer, err)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Learned. The corpus now has %d entries.\n", kb.Len())
	return nil
}

func kbInitAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log := getLogger(ctx)
	sm, err := server.NewStorageManager(ctx.Context, cfg.Knowledge, log)
	if err != nil {
		return err
	}
	provider := sm.GetProvider("")

	exists, err := provider.Exists(ctx.Context, cfg.Knowledge.Path)
	if err != nil {
		return fmt.Errorf("failed to check corpus: %w", err)
	}
	if exists && !ctx.Bool("force") {
		fmt.Fprintf(ctx.App.Writer, "%s already exists, use --force to overwrite\n", cfg.Knowledge.Path)
		return nil
	}

	corpus := knowledge_base.DefaultCorpus()
	data, err := knowledge_base.EncodeCorpus(corpus)
	if err != nil {
		return err
	}
	if err := provider.Write(ctx.Context, cfg.Knowledge.Path, data); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	log.Info("Knowledge corpus written",
		logger.StringField("path", cfg.Knowledge.Path),
		logger.IntField("entries", corpus.Len()))
	fmt.Fprintf(ctx.App.Writer, "Wrote %d entries to %s\n", corpus.Len(), cfg.Knowledge.Path)
	return nil
}
