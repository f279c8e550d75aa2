package player

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestTee(t *testing.T) {
	assert.Nil(t, Tee())

	single := &fakeOutput{}
	assert.Same(t, single, Tee(single))

	tests := []struct {
		name     string
		errs     []error
		wantErr  bool
		wantPlay Result
	}{
		{name: "all start", errs: []error{nil, nil}, wantPlay: ResultStarted},
		{name: "one blocked", errs: []error{ErrBlocked, nil}, wantPlay: ResultStarted},
		{name: "all blocked", errs: []error{ErrBlocked, errors.New("no device")}, wantErr: true, wantPlay: ResultBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outs := make([]Output, len(tt.errs))
			fakes := make([]*fakeOutput, len(tt.errs))
			for i, err := range tt.errs {
				fakes[i] = &fakeOutput{startErr: err}
				outs[i] = fakes[i]
			}
			o := Tee(outs...)

			assert.NoError(t, o.Load(landing))
			err := o.Start(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrBlocked))
			} else {
				assert.NoError(t, err)
			}
			for _, f := range fakes {
				assert.Len(t, f.loads, 1)
				assert.Equal(t, 1, f.starts)
			}

			p := New(Tee(outs...))
			p.SetTrack(intro)
			assert.Equal(t, tt.wantPlay, p.Play(context.Background()))
		})
	}
}
