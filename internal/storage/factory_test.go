package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
)

func TestNewJobStore(t *testing.T) {
	for _, storageType := range []string{"memory", "badger"} {
		t.Run(storageType, func(t *testing.T) {
			config := common.NewDefaultConfig()
			config.Storage.Type = storageType

			store, err := NewJobStore(arbor.NewLogger(), config)
			require.NoError(t, err)
			defer store.Close()

			id, err := store.Create(context.Background(), "mars")
			require.NoError(t, err)
			assert.NotEmpty(t, id)
		})
	}
}

func TestNewJobStore_UnknownType(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.Type = "postgres"

	_, err := NewJobStore(arbor.NewLogger(), config)
	assert.Error(t, err)
}
