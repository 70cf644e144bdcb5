package providers

import (
	"path/filepath"
	"testing"
	"viewguard/internal/models"
	"viewguard/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseProvider_SqliteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "viewguard.db")
	conf := &structures.Config{Database: structures.DatabaseConfig{Driver: "sqlite", DSN: dsn}}

	db, cleanup, err := NewDatabaseProvider(conf, &testLogger{})
	require.NoError(t, err)
	defer cleanup()

	for _, table := range []string{"prompts", "categories", "prompt_view_events", "antifraud_alerts"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	p := models.Prompt{Title: "t", AuthorID: "a"}
	require.NoError(t, db.Create(&p).Error)
	assert.NotEmpty(t, p.ID)
}

func TestNewDatabaseProvider_UnknownDriver(t *testing.T) {
	conf := &structures.Config{Database: structures.DatabaseConfig{Driver: "oracle", DSN: "x"}}
	_, _, err := NewDatabaseProvider(conf, &testLogger{})
	assert.Error(t, err)
}
