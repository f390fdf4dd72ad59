package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-workers/frame"
)

func TestStandardize(t *testing.T) {
	f, err := frame.New(
		[]string{" First Name ", "E-mail!", "empty", "Ingested_At", "first_name"},
		[][]string{
			{"Ann", "a@x.fi", "", "old", "dup"},
			{"NULL", "n/a", "", "", ""},
			{"Bob", "", "None", "", "dup"},
		},
	)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.FixedZone("EET", 2*3600))
	out, err := Standardize(f, Metadata{IngestedAt: at, DataSource: "s3", SourceFile: "in/people.csv"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first_name", "email", "first_name_2", "ingested_at", "data_source", "source_file"}, out.Names())
	assert.Equal(t, 2, out.NumRows(), "the row with only nulls is dropped")
	assert.Equal(t, "Bob", out.Column("first_name").Format(1))
	assert.Equal(t, "2024-03-01T06:00:00Z", out.Column("ingested_at").Format(0))
	assert.Equal(t, "s3", out.Column("data_source").Format(1))
	assert.Equal(t, "in/people.csv", out.Column("source_file").Format(0))
}

func TestStandardize_EmptyFrame(t *testing.T) {
	f, err := frame.New([]string{"a"}, nil)
	require.NoError(t, err)

	out, err := Standardize(f, Metadata{DataSource: "minio", SourceFile: "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ingested_at", "data_source", "source_file"}, out.Names())
	assert.Zero(t, out.NumRows())
}

func bytesReader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
