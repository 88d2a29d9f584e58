package pedestrian

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 64

// job is a single image handed to a worker.
type job struct {
	index int
	path  string
}

// result holds the outcome of processing one image.
type result[T any] struct {
	index int
	path  string
	value T
	err   error
}

// ListImages returns the supported image files found directly inside dir,
// sorted by name.
func ListImages(dir string) ([]string, error) {
	done := make(chan struct{})
	defer close(done)

	paths, errc := walkDir(done, dir, ImageExtensions)

	var files []string
	for path := range paths {
		files = append(files, path)
	}
	if err := <-errc; err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// walkDir starts a new goroutine reading the regular files of src and
// sends the path of each supported image to the returned channel.
// It finishes in case the done channel is getting closed.
func walkDir(done <-chan struct{}, src string, exts []string) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after the directory was read.
		defer close(pathChan)

		entries, err := os.ReadDir(src)
		if err != nil {
			errChan <- err
			return
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !isValidExtension(filepath.Ext(e.Name()), exts) {
				continue
			}
			select {
			case <-done:
				errChan <- errors.New("directory walk cancelled")
				return
			case pathChan <- filepath.Join(src, e.Name()):
			}
		}
		errChan <- nil
	}()
	return pathChan, errChan
}

// isValidExtension checks for the supported extensions.
func isValidExtension(ext string, extensions []string) bool {
	ext = strings.ToLower(ext)
	for _, ex := range extensions {
		if ex == ext {
			return true
		}
	}
	return false
}

// forEachImage runs fn over every path using a pool of workers. The
// results are handed to collect one at a time, in completion order, so
// collect may mutate shared state without locking. Cancelling ctx stops
// the dispatch of new images; the images already started are collected
// before ctx.Err() is returned.
func forEachImage[T any](
	ctx context.Context,
	paths []string,
	workers int,
	fn func(index int, path string) (T, error),
	collect func(res result[T]),
) error {
	// Limit the concurrently running workers to maxWorkers.
	if workers <= 0 || workers > maxWorkers {
		workers = runtime.NumCPU()
	}

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for i, path := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, path: path}:
			}
		}
	}()

	var wg sync.WaitGroup
	ch := make(chan result[T])

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			consumer[T](jobs, ch, fn)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	for res := range ch {
		collect(res)
	}
	return ctx.Err()
}

// consumer reads the jobs channel and processes each image with fn.
func consumer[T any](jobs <-chan job, res chan<- result[T], fn func(int, string) (T, error)) {
	for j := range jobs {
		v, err := fn(j.index, j.path)
		res <- result[T]{
			index: j.index,
			path:  j.path,
			value: v,
			err:   err,
		}
	}
}
