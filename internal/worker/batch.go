package worker

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
)

// Ingester ingests one contract file from disk
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*model.IngestResult, error)
}

// IngestJob ingests a single file
type IngestJob struct {
	Path     string
	Ingester Ingester
}

// Execute runs the ingestion
func (j *IngestJob) Execute(ctx context.Context) Result {
	result, err := j.Ingester.IngestFile(ctx, j.Path)
	if err != nil {
		return &IngestOutcome{Path: j.Path, Error: err}
	}
	return &IngestOutcome{Path: j.Path, Result: result}
}

// IngestOutcome is the per-file result of a batch
type IngestOutcome struct {
	Path   string
	Result *model.IngestResult
	Error  error
}

// GetError returns the ingestion error, if any
func (r *IngestOutcome) GetError() error {
	return r.Error
}

// BatchSummary counts outcomes by kind
type BatchSummary struct {
	Created   int
	Duplicate int
	Failed    int
}

// Summarize tallies a batch
func Summarize(outcomes []*IngestOutcome) BatchSummary {
	var s BatchSummary
	for _, o := range outcomes {
		switch {
		case o.Error != nil:
			s.Failed++
		case o.Result != nil && o.Result.Duplicate:
			s.Duplicate++
		default:
			s.Created++
		}
	}
	return s
}

// BatchProcessor ingests many files concurrently
type BatchProcessor struct {
	ingester    Ingester
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(ingester Ingester, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		ingester:    ingester,
		concurrency: concurrency,
	}
}

// ProcessFiles ingests paths and returns one outcome per path in input order.
// Identical files submitted together are still deduplicated by the store.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*IngestOutcome {
	if len(paths) == 0 {
		return []*IngestOutcome{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&IngestJob{Path: path, Ingester: b.ingester})
	}
	results := pool.Wait()

	outcomes := make([]*IngestOutcome, len(results))
	for i, result := range results {
		if result == nil {
			outcomes[i] = &IngestOutcome{Path: paths[i], Error: context.Canceled}
			continue
		}
		outcomes[i] = result.(*IngestOutcome)
	}
	return outcomes
}

// ExpandPaths turns arguments into a deduplicated list of files. Directories
// contribute their regular files (not recursively) and "@list" reads paths
// from a list file.
func ExpandPaths(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "@") {
			listed, err := ReadPathsFromFile(strings.TrimPrefix(arg, "@"))
			if err != nil {
				return nil, err
			}
			for _, p := range listed {
				add(p)
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "read dir %s", arg)
		}
		var files []string
		for _, e := range entries {
			if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(files)
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

// ReadPathsFromFile reads one path per line, skipping blanks and # comments
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "open list file")
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan list file")
	}
	return paths, nil
}
