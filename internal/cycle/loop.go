// Package cycle drives classify-and-report cycles: pick a candidate image,
// run it through the interpreter and print the predicted label.
package cycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/Brownie44l1/produce-classifier/internal/imageio"
	"github.com/Brownie44l1/produce-classifier/internal/model"
)

// DefaultInferencesPerCycle is the counter period when Options leaves it unset.
const DefaultInferencesPerCycle = 20

type Options struct {
	Images []string
	Labels []string
	// Probe logs whether each candidate image exists before every cycle.
	Probe              bool
	InferencesPerCycle int
	Filler             imageio.Filler
	Rand               *rand.Rand
	Out                io.Writer
	Logger             *slog.Logger
}

// Loop is the sole caller of the driver, reader and filler. It is not safe
// for concurrent use.
type Loop struct {
	driver  *model.Driver
	opts    Options
	counter *Counter
}

func NewLoop(driver *model.Driver, opts Options) *Loop {
	if opts.Filler == nil {
		opts.Filler = imageio.RawFiller{}
	}
	if opts.InferencesPerCycle < 1 {
		opts.InferencesPerCycle = DefaultInferencesPerCycle
	}
	return &Loop{driver: driver, opts: opts, counter: NewCounter(opts.InferencesPerCycle)}
}

// Setup prepares the driver and resets the inference counter.
func (l *Loop) Setup(modelData []byte) error {
	l.counter.Reset()
	return l.driver.Setup(modelData)
}

func (l *Loop) Counter() *Counter { return l.counter }

func (l *Loop) probe() {
	for _, path := range l.opts.Images {
		if imageio.Exists(path) {
			l.opts.Logger.Info("Found image", "path", path)
		} else {
			l.opts.Logger.Warn("Image not found", "path", path)
		}
	}
}

// Cycle classifies one randomly chosen candidate image and writes the result
// line. A failed cycle leaves no output line; the counter advances either way.
func (l *Loop) Cycle() (*model.Prediction, error) {
	defer l.counter.Inc()

	if l.driver.State() != model.Ready {
		return nil, engine.ErrNotReady
	}
	if len(l.opts.Images) == 0 {
		return nil, fmt.Errorf("%w: no candidate images", imageio.ErrIO)
	}
	if l.opts.Probe {
		l.probe()
	}

	path := l.opts.Images[l.opts.Rand.IntN(len(l.opts.Images))]
	logger := l.opts.Logger.With("path", path)

	buf, err := imageio.ReadFile(logger, path)
	if err != nil {
		logger.Error("Failed to load image")
		return nil, err
	}
	if err := l.opts.Filler.Fill(buf, l.driver.Input()); err != nil {
		logger.Error("Failed to load image", "error", err)
		return nil, fmt.Errorf("filling input from %s: %w", path, err)
	}

	if err := l.driver.Invoke(); err != nil {
		logger.Error("Invoke failed on image", "error", err)
		return nil, err
	}

	prediction, err := model.Decide(l.driver.Output(), l.opts.Labels)
	if err != nil {
		logger.Error("Failed to decide label", "error", err)
		return nil, err
	}

	fmt.Fprintf(l.opts.Out, "Image: %s, Prediction: %s\n", path, prediction.Class)
	logger.Debug("Prediction", "class", prediction.Class, "score", prediction.Score, "scores", prediction.Predictions)
	return prediction, nil
}

// Run calls Cycle until ctx is done or, when cycles is positive, that many
// cycles have run. Failed cycles are skipped; the next one starts fresh.
// It returns how many cycles produced a prediction.
func (l *Loop) Run(ctx context.Context, cycles int, interval time.Duration) int {
	ok := 0
	for i := 0; cycles <= 0 || i < cycles; i++ {
		if ctx.Err() != nil {
			break
		}
		if _, err := l.Cycle(); err == nil {
			ok++
		}

		if interval <= 0 || (cycles > 0 && i == cycles-1) {
			continue
		}
		select {
		case <-ctx.Done():
			return ok
		case <-time.After(interval):
		}
	}
	return ok
}
