package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry, err := NewRegistry(nil, &stubJob{name: "a"})
	require.NoError(t, err)
	jobB := &stubJob{name: "b"}
	require.NoError(t, registry.Register(jobB))
	require.NoError(t, registry.Register(nil))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name())
	assert.Same(t, jobB, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "cart-expiry"})
	require.NoError(t, err)
	err = registry.Register(&stubJob{name: "cart-expiry"})
	assert.Error(t, err)
	assert.Len(t, registry.Jobs(), 1)
}

func TestNewRegistryFailsOnDuplicateNames(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "notification-cleanup"}, &stubJob{name: "notification-cleanup"})
	require.Error(t, err)
	assert.Nil(t, registry)
	assert.Contains(t, err.Error(), "notification-cleanup")
}
