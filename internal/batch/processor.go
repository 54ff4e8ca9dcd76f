package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lodgen/lodgen/internal/appconfig"
	"github.com/lodgen/lodgen/internal/orchestrator"
	"github.com/lodgen/lodgen/internal/sceneio"
)

// Config holds the shared settings for a batch run over many jobs.
type Config struct {
	Workers int
}

// Result holds the outcome of processing one job.
type Result struct {
	Job     Job
	Lods    []orchestrator.LodInfo
	Success bool
	Error   string
}

// Run processes every job through a worker pool, each worker owning its own
// scene load + orchestrator.GenerateLODs call so concurrent jobs never share
// mutable scene state. Mirrors the teacher's ticker-reported worker pool,
// generalized from a fixed item-render step to an arbitrary per-job pipeline.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f scenes/sec\n", p, total, rate)
				}
			}
		}
	}()

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(ctx, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		select {
		case jobChan <- i:
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			close(done)
			return results
		}
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func processJob(ctx context.Context, job Job) Result {
	s, err := sceneio.Load(job.ScenePath)
	if err != nil {
		return Result{Job: job, Error: err.Error()}
	}

	var cfg appconfig.Config
	if err := cfg.Resolve(appconfig.Flags{
		ModelPath:      job.ScenePath,
		OutputDir:      job.OutputDir,
		Ratios:         job.Ratios,
		ResizeTextures: job.ResizeTextures,
		BuildAtlas:     job.BuildAtlas,
	}); err != nil {
		return Result{Job: job, Error: err.Error()}
	}

	lods, err := orchestrator.GenerateLODs(ctx, s, job.ScenePath, orchestrator.Options{
		Ratios:         cfg.Ratios,
		ResizeTextures: cfg.ResizeTextures,
		OutputDir:      cfg.OutputDir,
	})
	if err != nil {
		return Result{Job: job, Lods: lods, Error: err.Error()}
	}

	if job.BuildAtlas {
		for _, lod := range lods {
			if _, err := orchestrator.BuildLODAtlas(lod.OutputPath, filepath.Dir(lod.OutputPath)); err != nil {
				return Result{Job: job, Lods: lods, Error: err.Error()}
			}
		}
	}

	return Result{Job: job, Lods: lods, Success: true}
}
