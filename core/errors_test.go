package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDomainError(t *testing.T) {
	cfgErr := NewConfigError(ModuleNeighborhood, "k must be > 0, got %d", 0)

	tests := []struct {
		name string
		err  error
		want *DomainError
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"direct", cfgErr, cfgErr},
		{"wrapped", fmt.Errorf("build stack: %w", cfgErr), cfgErr},
		{"joined", errors.Join(errors.New("boom"), cfgErr), cfgErr},
		{"wrapped join", fmt.Errorf("save: %w", errors.Join(ErrStoreNotFound)), ErrStoreNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetDomainError(tt.err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Same(t, tt.want, got)
		})
	}
}

func TestIsHelpers_JoinedErrors(t *testing.T) {
	err := errors.Join(errors.New("redis down"), fmt.Errorf("load: %w", ErrStoreNotFound))
	assert.True(t, IsStoreNotFound(err))
	assert.False(t, IsConfigError(err))

	err = errors.Join(NewConfigError(ModuleRerank, "lambda out of range"))
	assert.True(t, IsConfigError(err))
	assert.Equal(t, "rerank: lambda out of range", GetDomainError(err).Error())
}
