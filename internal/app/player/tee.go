package player

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/wishcard/internal/domain/track"
)

// Tee fans one handle out to several outputs. Start succeeds if any output
// starts; otherwise it returns the combined errors.
func Tee(outputs ...Output) Output {
	switch len(outputs) {
	case 0:
		return nil
	case 1:
		return outputs[0]
	}
	return tee(outputs)
}

type tee []Output

func (t tee) Load(tr track.Track) error {
	var errs error
	for _, o := range t {
		if err := o.Load(tr); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (t tee) Start(ctx context.Context) error {
	var errs error
	started := false
	for _, o := range t {
		if err := o.Start(ctx); err != nil {
			errs = errors.CombineErrors(errs, err)
			continue
		}
		started = true
	}
	if started {
		return nil
	}
	return errs
}

func (t tee) Stop() error {
	var errs error
	for _, o := range t {
		if err := o.Stop(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}
