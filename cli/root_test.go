package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "eventctl", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	for _, name := range []string{"verbose", "format", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{
		{"init"},
		{"wait"},
		{"ingest"},
		{"query", "correlation"},
		{"query", "reference"},
		{"redrive"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "find %v", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		path []string
		flag string
	}{
		{[]string{"init"}, "skip-queue"},
		{[]string{"wait"}, "interval"},
		{[]string{"wait"}, "stable"},
		{[]string{"ingest"}, "enqueue"},
		{[]string{"ingest"}, "generate-id"},
		{[]string{"query", "correlation"}, "after"},
		{[]string{"query", "correlation"}, "limit"},
		{[]string{"redrive"}, "view"},
	}
	for _, tt := range tests {
		sub, _, err := cmd.Find(tt.path)
		require.NoError(t, err)
		assert.NotNil(t, sub.Flag(tt.flag), "%v missing --%s", tt.path, tt.flag)
	}
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	setupRedisEnv(t)

	_, err := execute(t, "--format", "xml", "query", "reference", "ORD-1", "2016")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestSplitEvents(t *testing.T) {
	raws, err := splitEvents([]byte(`  {"id":"a"}  `))
	require.NoError(t, err)
	assert.Len(t, raws, 1)

	raws, err = splitEvents([]byte(`[{"id":"a"},{"id":"b"}]`))
	require.NoError(t, err)
	assert.Len(t, raws, 2)

	_, err = splitEvents([]byte("   "))
	assert.Error(t, err)

	_, err = splitEvents([]byte(`[{"id":`))
	assert.Error(t, err)
}
