package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowHappyPath(t *testing.T) {
	f := NewFlow()
	assert.Equal(t, Idle, f.State())

	for _, next := range []State{FileUploaded, ConfiguringOptions, Converting} {
		require.NoError(t, f.To(next))
	}
	require.NoError(t, f.Finish(nil))
	assert.Equal(t, Succeeded, f.State())

	// a new upload starts over
	require.NoError(t, f.To(FileUploaded))
	assert.Equal(t, []State{Idle, FileUploaded, ConfiguringOptions, Converting, Succeeded, FileUploaded}, f.History())
}

func TestFlowFailure(t *testing.T) {
	f := NewFlow()
	require.NoError(t, f.To(FileUploaded))
	require.NoError(t, f.To(Converting))
	require.NoError(t, f.Finish(errors.New("boom")))
	assert.Equal(t, Failed, f.State())
	require.NoError(t, f.To(Idle))
}

func TestFlowRejectsUndefinedTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		next State
	}{
		{"convert without upload", nil, Converting},
		{"options without upload", nil, ConfiguringOptions},
		{"succeed without converting", []State{FileUploaded}, Succeeded},
		{"leave converting for options", []State{FileUploaded, Converting}, ConfiguringOptions},
		{"convert twice", []State{FileUploaded, Converting, Succeeded}, Converting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFlow()
			for _, s := range tt.path {
				require.NoError(t, f.To(s))
			}
			before := f.State()
			err := f.To(tt.next)
			assert.ErrorIs(t, err, ErrTransition)
			assert.Equal(t, before, f.State())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "configuring_options", ConfiguringOptions.String())
	assert.Equal(t, "state(42)", State(42).String())
}
