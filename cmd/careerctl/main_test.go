package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"advance", "finalize", "season-end", "career-tick"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, cmd.Name())
	}
}

func TestAdvanceCmd_RequiresGameID(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"advance"})

	err := root.Execute()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "accepts 1 arg"), err.Error())
}

func TestCareerTick_RunsAgainstDemoSave(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SEED_DEMO_CAREER", "true")
	t.Setenv("CAREER_DISPATCH_MODE", "none")
	t.Setenv("APP_LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"career-tick", "demo-career", "--ticks", "1"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), `"game_id": "demo-career"`)
}
