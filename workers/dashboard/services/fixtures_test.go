package services

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"pipeline-workers/repositories"
)

const dataDir = "/shared/data"

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

const cleanedCSV = `id,amount,city,ingested_at,data_source,source_file
1,10,Paris,2024-03-01T08:00:00Z,s3,a.csv
2,20,Paris,2024-03-01T08:00:00Z,s3,a.csv
3,30,Lyon,2024-02-20T08:00:00Z,s3,a.csv
4,40,Nice,2024-02-20T08:00:00Z,s3,a.csv
`

type artifactFixture struct {
	fs    afero.Fs
	store *repositories.ArtifactStore
}

func newArtifactFixture(t *testing.T) *artifactFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := repositories.NewArtifactStoreFs(fs, dataDir)
	require.NoError(t, store.Ensure())
	return &artifactFixture{fs: fs, store: store}
}

func (fx *artifactFixture) put(t *testing.T, name, content string, mod time.Time) {
	t.Helper()
	path := dataDir + "/" + name
	require.NoError(t, afero.WriteFile(fx.fs, path, []byte(content), 0o644))
	require.NoError(t, fx.fs.Chtimes(path, mod, mod))
}

func (fx *artifactFixture) loader(t *testing.T) *DataLoader {
	t.Helper()
	l, err := NewDataLoader(fx.store, 4, nil)
	require.NoError(t, err)
	return l
}
