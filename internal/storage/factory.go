package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/storage/badger"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/storage/memory"
)

// NewJobStore creates the job store selected by config
func NewJobStore(logger arbor.ILogger, config *common.Config) (interfaces.JobStore, error) {
	switch config.Storage.Type {
	case "", "memory":
		logger.Debug().Msg("Using in-memory job store")
		return memory.NewJobStore(logger), nil
	case "badger":
		db, err := badger.NewBadgerDB(logger)
		if err != nil {
			return nil, err
		}
		logger.Debug().Msg("Using badger job store")
		return badger.NewJobStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'memory' or 'badger')", config.Storage.Type)
	}
}
