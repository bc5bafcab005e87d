package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fursa-app/opportunity-cli/internal/config"
	"github.com/fursa-app/opportunity-cli/internal/llm"
	"github.com/fursa-app/opportunity-cli/internal/pipeline"
	"github.com/fursa-app/opportunity-cli/internal/store"
	"github.com/fursa-app/opportunity-cli/pkg/chatapi"
	"github.com/fursa-app/opportunity-cli/pkg/jina"
	"github.com/fursa-app/opportunity-cli/pkg/qdrant"
)

var runCmd = &cobra.Command{
	Use:   "run [stage...]",
	Short: "Run the ingestion pipeline",
	Long: `Run the ingestion pipeline. With no arguments all stages run in order:
fetch, extract, index. Naming stages runs that subset, still in canonical
order. When an upstream stage finds no new work, later stages are skipped.`,
	ValidArgs: []string{pipeline.StageFetch, pipeline.StageExtract, pipeline.StageIndex},
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		pool, err := buildPool(cfg.Providers)
		if err != nil {
			return err
		}

		docs, err := pipeline.NewDocStore(cfg.Pipeline.DocsDir)
		if err != nil {
			return err
		}

		jinaClient := jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithEmbedBaseURL(cfg.Jina.EmbedBaseURL),
			jina.WithEmbedModel(cfg.Jina.EmbedModel),
		)
		qdrantClient := qdrant.NewClient(cfg.Qdrant.Endpoint, cfg.Qdrant.Key)

		pacer := pipeline.NewPacer(
			time.Duration(cfg.Pipeline.PaceMinSecs)*time.Second,
			time.Duration(cfg.Pipeline.PaceMaxSecs)*time.Second,
		)

		stages := buildStages(args, st, pool, docs, jinaClient, qdrantClient, pacer)
		return pipeline.NewController(stages).Run(ctx)
	},
}

// buildPool assembles the provider pool from configuration, preserving list
// order. Zero configured providers is a startup error, not a runtime one.
func buildPool(configs []config.ProviderConfig) (*llm.Pool, error) {
	providers := make([]llm.Provider, 0, len(configs))
	for _, pc := range configs {
		if pc.Key == "" {
			zap.L().Warn("provider has no API key, skipping", zap.String("provider", pc.Name))
			continue
		}
		switch pc.Kind {
		case "anthropic":
			providers = append(providers, llm.NewAnthropicProvider(pc.Name, pc.Key, pc.Model, pc.BaseURL))
		case "openai", "":
			client := chatapi.NewClient(pc.Key, pc.BaseURL)
			providers = append(providers, llm.NewOpenAIProvider(pc.Name, pc.Model, client))
		default:
			return nil, eris.Errorf("unknown provider kind %q for %s", pc.Kind, pc.Name)
		}
		zap.L().Info("provider configured", zap.String("provider", pc.Name), zap.String("model", pc.Model))
	}
	return llm.NewPool(providers...)
}

// buildStages resolves the requested stage names to runnable stages in
// canonical order. An empty request means all stages.
func buildStages(requested []string, st store.Store, pool *llm.Pool, docs *pipeline.DocStore, jinaClient jina.Client, qdrantClient qdrant.Client, pacer *pipeline.Pacer) []pipeline.Stage {
	fetcher := pipeline.NewFetcher(jinaClient, docs, st,
		cfg.Scrape.ListingURL, cfg.Scrape.Source,
		time.Duration(cfg.Scrape.TimeoutSecs)*time.Second,
		cfg.Scrape.ArticlesPerSec,
	)
	extractStage := pipeline.NewExtractStage(
		pipeline.NewExtractor(pool),
		pipeline.NewTranslator(pool),
		docs, st, pacer, cfg.Pipeline.SourceLanguage,
	)
	indexer := pipeline.NewIndexer(jinaClient, qdrantClient, docs,
		cfg.Qdrant.Collection, cfg.Pipeline.EmbedBatchSize, cfg.Pipeline.UpsertBatchSize,
	)

	all := []pipeline.Stage{
		{Name: pipeline.StageFetch, Run: fetcher.Run},
		{Name: pipeline.StageExtract, Run: extractStage.Run},
		{Name: pipeline.StageIndex, Run: indexer.Run},
	}
	if len(requested) == 0 {
		return all
	}

	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		want[name] = true
	}
	stages := make([]pipeline.Stage, 0, len(all))
	for _, stage := range all {
		if want[stage.Name] {
			stages = append(stages, stage)
		}
	}
	return stages
}

func init() {
	rootCmd.AddCommand(runCmd)
}
