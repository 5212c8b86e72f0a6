package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-foundations/jobengine"
	"github.com/go-foundations/jobengine/logging"
	"github.com/go-foundations/jobengine/metrics"
	"github.com/rs/zerolog"
)

func main() {
	fmt.Println("=== String Processing with jobengine ===")

	logger := zerolog.New(zerolog.NewConsoleWriter())
	reg := metrics.NewRegistry(metrics.NopSink{})

	pool := jobengine.NewBuilder("string-demo").
		Workers(4, jobengine.DefaultWorkerPolicy()).
		Metrics(reg).
		Logging(logging.NewZerologSink(logger)).
		Build()

	if err := pool.Start(); err != nil {
		fmt.Printf("start failed: %v\n", err)
		return
	}
	defer pool.Stop(false)

	inputs := []string{
		"hello world",
		"golang programming",
		"concurrent processing",
		"worker pool pattern",
		"generic types",
		"high performance",
	}

	results := make(chan string, len(inputs))
	start := time.Now()
	for i, text := range inputs {
		text := text
		id := i + 1
		job := jobengine.NewFuncJob(fmt.Sprintf("string-%d", id), nil, func(ctx context.Context) error {
			time.Sleep(50 * time.Millisecond)
			results <- fmt.Sprintf("%d. %s", id, strings.ToUpper(text))
			return nil
		})
		if err := pool.Enqueue(job); err != nil {
			fmt.Printf("enqueue failed: %v\n", err)
			return
		}
	}

	fmt.Println("Results:")
	fmt.Println("--------")
	for range inputs {
		fmt.Println(<-results)
	}

	fmt.Printf("\nOverall duration: %v\n", time.Since(start))

	snap := pool.Diagnostics()
	fmt.Printf("\nDiagnostics:\n")
	fmt.Printf("------------\n")
	fmt.Printf("health: %s\n", snap.Health)
	fmt.Printf("pending jobs: %d\n", snap.PendingJobs)
	for _, w := range snap.Workers {
		fmt.Printf("worker %d: %s done=%d failed=%d\n", w.ID, w.State, w.JobsDone, w.JobsFailed)
	}
}
