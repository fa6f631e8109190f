package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a single Badger
// database, one badgerhold-typed repository per data-model type.
type Manager struct {
	db          *BadgerDB
	scans       interfaces.ScanStorage
	images      interfaces.ImageStorage
	checkpoints interfaces.CheckpointStorage
	zips        interfaces.ZipStorage
	stats       interfaces.StatsStorage
	logs        interfaces.LogStorage
}

// NewManager opens the database and wires every repository against it.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:          db,
		scans:       NewScanStorage(db, logger),
		images:      NewImageStorage(db, logger),
		checkpoints: NewCheckpointStorage(db, logger),
		zips:        NewZipStorage(db, logger),
		stats:       NewStatsStorage(db, logger),
		logs:        NewLogStorage(db, logger),
	}

	logger.Info().Msg("badger storage manager initialized")
	return m, nil
}

func (m *Manager) Scans() interfaces.ScanStorage             { return m.scans }
func (m *Manager) Images() interfaces.ImageStorage           { return m.images }
func (m *Manager) Checkpoints() interfaces.CheckpointStorage { return m.checkpoints }
func (m *Manager) Zips() interfaces.ZipStorage               { return m.zips }
func (m *Manager) Stats() interfaces.StatsStorage            { return m.stats }
func (m *Manager) Logs() interfaces.LogStorage               { return m.logs }

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
