package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"

	"agentrag/internal/domain"
	"agentrag/internal/logger"
)

// ErrNoDocuments is returned when no input path names a supported document.
var ErrNoDocuments = errors.New("no supported documents found")

// FileResult is the outcome of ingesting one file. Skipped is set when a
// document with the same name was already ingested by this app.
type FileResult struct {
	Path     string
	Type     domain.DocumentType
	ChunkIDs []int
	Skipped  bool
	Err      error
}

// ExpandPaths resolves glob patterns and keeps files with a supported extension,
// in input order without duplicates.
func ExpandPaths(patterns []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if _, ok := domain.DocumentTypeFromPath(m); !ok {
				logger.Debugw("skipping unsupported file", "path", m)
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// IngestFiles uploads every supported file matched by patterns on a bounded
// worker pool. Results are in path order; per-file failures do not stop the batch.
// A file whose name was already ingested is reported as Skipped and not uploaded again.
func (a *App) IngestFiles(ctx context.Context, patterns []string) ([]FileResult, error) {
	paths := ExpandPaths(patterns)
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}

	pool, err := ants.NewPool(max(a.workers, 1), ants.WithPanicHandler(func(p any) {
		logger.Errorw("ingest worker panic recovered", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	defer pool.Release()

	results := make([]FileResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		i, path := i, path
		docType, _ := domain.DocumentTypeFromPath(path)
		results[i] = FileResult{Path: path, Type: docType}
		name := filepath.Base(path)
		if !a.claim(name) {
			results[i].Skipped = true
			continue
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i].ChunkIDs, results[i].Err = a.ingestFile(ctx, path, name, docType)
			if results[i].Err != nil {
				a.release(name)
			}
		})
		if err != nil {
			wg.Done()
			a.release(name)
			results[i].Err = err
		}
	}
	wg.Wait()

	for _, r := range results {
		if r.Skipped {
			logger.Infow("already ingested, skipping", "path", r.Path)
			continue
		}
		if r.Err != nil {
			logger.Warnw("ingest failed", "path", r.Path, "error", r.Err.Error())
		} else {
			logger.Infow("ingested", "path", r.Path, "type", r.Type, "chunks", len(r.ChunkIDs))
		}
	}
	return results, nil
}

func (a *App) ingestFile(ctx context.Context, path, name string, docType domain.DocumentType) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := a.Upload(ctx, name, docType, data)
	if err != nil {
		return nil, err
	}
	return res.ChunkIDs, nil
}

// claim reserves a document name. It reports false if the name is already
// ingested or being ingested.
func (a *App) claim(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ingested[name]; ok {
		return false
	}
	a.ingested[name] = struct{}{}
	return true
}

// release frees a name whose upload failed so it can be retried.
func (a *App) release(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.ingested, name)
}
