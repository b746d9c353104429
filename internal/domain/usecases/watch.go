package usecases

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/ports"
)

// Submitter is the part of QueryController the watch loop needs.
type Submitter interface {
	Submit(question, theme string)
}

// WatchUseCase resubmits the content of a question file whenever it changes.
// Rapid saves simply supersede each other in the controller.
type WatchUseCase struct {
	watcher   ports.FileWatcher
	submitter Submitter
	read      func(path string) ([]byte, error)
	theme     string
}

// NewWatchUseCase creates a WatchUseCase with injected dependencies.
func NewWatchUseCase(
	watcher ports.FileWatcher,
	submitter Submitter,
	read func(path string) ([]byte, error),
	theme string,
) *WatchUseCase {
	return &WatchUseCase{
		watcher:   watcher,
		submitter: submitter,
		read:      read,
		theme:     theme,
	}
}

// Run submits the current content, then follows changes until ctx is done
// or the watcher stops.
func (uc *WatchUseCase) Run(ctx context.Context, path string) error {
	events, err := uc.watcher.Watch(ctx, path)
	if err != nil {
		return fmt.Errorf("watching question file: %w", err)
	}

	if err := uc.submitFrom(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Operation == ports.FileDeleted {
				continue
			}
			if err := uc.submitFrom(event.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
}

// submitFrom reads the file and submits it unless it is blank.
// Blank questions never reach the controller.
func (uc *WatchUseCase) submitFrom(path string) error {
	data, err := uc.read(path)
	if err != nil {
		return fmt.Errorf("reading question file: %w", err)
	}
	question := strings.TrimSpace(string(data))
	if question == "" {
		return nil
	}
	uc.submitter.Submit(question, uc.theme)
	return nil
}
