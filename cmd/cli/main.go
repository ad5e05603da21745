// Command cli runs one experiment from a JSON definition file and writes the
// flattened records to a CSV or xlsx table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"promptlab/adapters/export"
	"promptlab/adapters/llm"
	"promptlab/adapters/rng"
	"promptlab/app"
	"promptlab/internal"
	"promptlab/internal/config"
	"promptlab/internal/designfile"
	"promptlab/ports"

	"github.com/joho/godotenv"
)

func main() {
	designPath := flag.String("design", "", "path to the experiment definition JSON")
	outPath := flag.String("out", "records.csv", "output table path (.csv or .xlsx)")
	dryRun := flag.Bool("dry-run", false, "use a canned producer instead of calling the provider")
	flag.Parse()

	if *designPath == "" {
		fmt.Fprintln(os.Stderr, "usage: cli -design experiment.json [-out records.csv] [-dry-run]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger := internal.NewDefaultLogger()

	f, err := os.Open(*designPath)
	if err != nil {
		log.Fatalf("Open definition: %v", err)
	}
	def, err := designfile.Parse(f)
	f.Close()
	if err != nil {
		log.Fatalf("Parse definition: %v", err)
	}
	d, opts, err := def.Build()
	if err != nil {
		log.Fatalf("Invalid experiment: %v", err)
	}
	if opts.Parallelism == 0 {
		opts.Parallelism = appConfig.Run.Parallelism
	}

	producer, err := buildProducer(appConfig, *dryRun, logger)
	if err != nil {
		log.Fatalf("Producer error: %v", err)
	}

	experiments := app.NewExperimentService(producer, rng.New(), nil, logger)
	result, err := experiments.Run(context.Background(), d, opts)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	writer := export.NewDataWriter(*outPath)
	if err := writer.WriteRecords(d.Columns(), result.Records); err != nil {
		log.Fatalf("Write records: %v", err)
	}

	logger.Info("[cli] run %s: wrote %d records to %s (%d failed conditions)",
		result.RunID, len(result.Records), *outPath, len(result.Failures))
	for _, failure := range result.Failures {
		logger.Warn("[cli] condition %d failed: %s", failure.Index, failure.Err)
	}
}

func buildProducer(appConfig *config.Config, dryRun bool, logger *internal.Logger) (ports.Producer, error) {
	if dryRun {
		return llm.NewCompletionProducer(&llm.MockLLMClient{}, llm.ProducerConfig{
			Model:       appConfig.AI.Model,
			MaxAttempts: 1,
		}, logger), nil
	}
	client, err := llm.NewClient(llm.Config{
		APIKey:  appConfig.AI.OpenAIKey,
		BaseURL: appConfig.AI.BaseURL,
		Timeout: appConfig.AI.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewCompletionProducer(client, llm.ProducerConfig{
		Model:       appConfig.AI.Model,
		Temperature: appConfig.AI.Temperature,
		MaxTokens:   appConfig.AI.MaxTokens,
		MaxAttempts: appConfig.AI.MaxAttempts,
		Backoff:     appConfig.AI.RetryBackoff,
	}, logger), nil
}
