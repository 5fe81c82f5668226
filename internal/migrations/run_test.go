package migrations

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	d, err := iofs.New(fs, ".")
	require.NoError(t, err)
	defer d.Close()

	v, err := d.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	up, _, err := d.ReadUp(v)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	for _, table := range []string{"sessions", "assessments", "training_runs"} {
		assert.Contains(t, string(body), "create table if not exists "+table)
	}

	down, _, err := d.ReadDown(v)
	require.NoError(t, err)
	body, err = io.ReadAll(down)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(body), "drop table"))
}

func TestRun_RequiresDSN(t *testing.T) {
	assert.Error(t, Run(""))
}
