package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	t.Run("Should register every subcommand", func(t *testing.T) {
		cmd := RootCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		assert.Subset(t, names, []string{"listen", "history", "publish", "mark-read", "migrate"})
	})
	t.Run("Should expose the persistent logging flags", func(t *testing.T) {
		cmd := RootCmd()
		for _, flag := range []string{"env-file", "log-level", "log-json", "log-source"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
		}
	})
	t.Run("Should tolerate a missing env file", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", "does-not-exist.env"))
		require.NoError(t, cmd.PersistentPreRunE(cmd, nil))
	})
}

func TestOptionalFlag(t *testing.T) {
	t.Run("Should map empty strings to absent references", func(t *testing.T) {
		cmd := PublishCmd()
		assert.Nil(t, optionalFlag(cmd, "sender"))
		require.NoError(t, cmd.Flags().Set("sender", "u2"))
		got := optionalFlag(cmd, "sender")
		require.NotNil(t, got)
		assert.Equal(t, "u2", *got)
	})
}
