package noteclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/embelhq/embel/notes"
	"github.com/embelhq/embel/pollwait"
)

// ErrPollTimeout is returned when the processing budget runs out before the
// note reaches a terminal state. Distinct from a processing failure: the
// note may still complete later.
var ErrPollTimeout = errors.New("processing did not finish within the expected budget")

// ProcessingError is a note that ended in the error state; the message is
// the server-reported failure.
type ProcessingError struct {
	NoteID  string
	Message string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("note %s failed: %s", e.NoteID, e.Message)
}

// ProgressFunc observes poll snapshots. Callbacks are sequential and only
// fire on forward movement; a stale snapshot is dropped, never delivered.
type ProgressFunc func(n *notes.Note)

// AwaitOptions control one wait. The zero value derives everything from
// the submitted input shape via EstimateText/EstimateImages.
type AwaitOptions struct {
	// Words is the input word count for text notes.
	Words int
	// Images is the input image count; nonzero selects image cadence.
	Images int
	// Budget overrides the derived deadline when nonzero.
	Budget time.Duration
	// Interval overrides the derived cadence when nonzero.
	Interval time.Duration
	// OnProgress, when set, receives forward-moving status snapshots.
	OnProgress ProgressFunc
}

func (o AwaitOptions) budget() time.Duration {
	if o.Budget > 0 {
		return o.Budget
	}
	var est time.Duration
	if o.Images > 0 {
		est = EstimateImages(o.Images)
	} else {
		est = EstimateText(o.Words)
	}
	return PollBudget(est, o.Images)
}

func (o AwaitOptions) interval() time.Duration {
	if o.Interval > 0 {
		return o.Interval
	}
	return PollInterval(o.Images)
}

// AwaitCompletion polls a note until it completes, fails, or the budget
// runs out. Completion returns the final note; failure returns a
// ProcessingError; a blown budget returns ErrPollTimeout exactly once —
// polling stops with it. Cancelling ctx returns ctx.Err().
func (c *Client) AwaitCompletion(ctx context.Context, noteID string, opts AwaitOptions) (*notes.Note, error) {
	var final *notes.Note
	lastProgress := -1

	err := pollwait.Until(ctx, opts.interval(), opts.budget(), func(ctx context.Context) (bool, error) {
		n, err := c.GetNote(ctx, noteID)
		if err != nil {
			// transient fetch errors ride out the budget instead of
			// aborting a wait that might still succeed
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status < 500 {
				return false, err
			}
			return false, nil
		}

		if n.Progress > lastProgress || n.Status.Terminal() {
			lastProgress = n.Progress
			if opts.OnProgress != nil && !n.Status.Terminal() {
				opts.OnProgress(n)
			}
		}

		if n.Status.Terminal() {
			final = n
			return true, nil
		}
		return false, nil
	})

	switch {
	case errors.Is(err, pollwait.ErrTimeout):
		return nil, fmt.Errorf("note %s: %w", noteID, ErrPollTimeout)
	case err != nil:
		return nil, err
	}

	if final.Status == notes.StatusError {
		msg := final.StatusError
		if strings.TrimSpace(msg) == "" {
			msg = "processing failed"
		}
		return nil, &ProcessingError{NoteID: noteID, Message: msg}
	}
	return final, nil
}

// SubmitAndWait is the one-call path: submit text, then wait with the
// derived budget.
func (c *Client) SubmitAndWait(ctx context.Context, text string, settings notes.Settings, onProgress ProgressFunc) (*notes.Note, error) {
	n, err := c.CreateTextNote(ctx, text, settings)
	if err != nil {
		return nil, err
	}
	return c.AwaitCompletion(ctx, n.ID, AwaitOptions{
		Words:      len(strings.Fields(text)),
		OnProgress: onProgress,
	})
}

// SubmitImagesAndWait submits an image batch and waits on the image-shaped
// budget.
func (c *Client) SubmitImagesAndWait(ctx context.Context, files []ImageFile, settings notes.Settings, onProgress ProgressFunc) (*notes.Note, error) {
	n, err := c.CreateImageNote(ctx, files, settings)
	if err != nil {
		return nil, err
	}
	return c.AwaitCompletion(ctx, n.ID, AwaitOptions{
		Images:     len(files),
		OnProgress: onProgress,
	})
}
