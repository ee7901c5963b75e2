package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/spendburn/internal/ledger"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/source"
)

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Ledger      *ledger.Ledger
	Files       []source.DiscoveredFile
	TotalFiles  int
	ParsedFiles int
	Rows        int
	Skipped     int
	RowErrors   []error
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses every CSV file under path and merges the rows into
// one ledger. Files are parsed by a bounded worker pool; results are merged in
// path order so the ledger does not depend on scheduling.
//
// Under source.PolicyStrict the first failing file (in path order) aborts the
// load. Under source.PolicySkip bad rows are counted, but an unreadable file or
// a missing header column still fails the load.
func Load(ctx context.Context, path string, opts source.Options, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &LoadResult{
		Files:      files,
		TotalFiles: len(files),
	}
	if len(files) == 0 {
		result.Ledger = ledger.New(nil)
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}

	results := make([]source.ParseResult, len(files))
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = source.ParseFile(files[i], opts)
			n := processed.Add(1)
			if progressFn != nil {
				progressFn(int(n), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var txns []model.Transaction
	for _, pr := range results {
		if pr.Err != nil {
			return nil, pr.Err
		}
		result.ParsedFiles++
		result.Rows += pr.Rows
		result.Skipped += pr.Skipped
		result.RowErrors = append(result.RowErrors, pr.RowErrors...)
		txns = append(txns, pr.Transactions...)
	}
	result.Ledger = ledger.New(txns)

	return result, nil
}
