package util

import (
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dPhil/lib/ring"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("resource ", 20)
	for _, line := range strings.Split(WrapString(text), "\n") {
		require.LessOrEqual(t, len(line), Wrap)
	}
	require.Equal(t, "", WrapString("   "))
	require.Equal(t, "one two", WrapString("one   two"))

	long := strings.Repeat("x", Wrap+10)
	require.Equal(t, "agents\n"+long+"\nresources", WrapString("agents "+long+" resources"))
}

func TestGetTableConfig(t *testing.T) {
	defer viper.Reset()

	cmd := &cobra.Command{Use: "dine"}
	SetupTableFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--agents=7", "--protocol=guarded", "--fairness=false", "--eat=250ms", "--meals=3"}))
	require.NoError(t, BindCommandFlags(cmd))

	conf, err := GetTableConfig()
	require.NoError(t, err)
	require.Equal(t, 7, conf.Agents)
	require.Equal(t, ring.ProtocolGuarded, conf.Protocol)
	require.False(t, conf.Fairness)
	require.Equal(t, 250*time.Millisecond, conf.EatTime)
	require.Equal(t, time.Second, conf.ThinkTime)
	require.Equal(t, uint64(3), conf.MealLimit)
}

func TestGetTableConfigEnv(t *testing.T) {
	defer viper.Reset()
	t.Setenv("DPHIL_AGENTS", "1")

	cmd := &cobra.Command{Use: "dine"}
	SetupTableFlags(cmd)
	require.NoError(t, BindCommandFlags(cmd))
	InitConfig()

	_, err := GetTableConfig()
	require.Error(t, err)
}

func TestGetTableConfigProtocol(t *testing.T) {
	defer viper.Reset()

	cmd := &cobra.Command{Use: "dine"}
	SetupTableFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--protocol=ticket"}))
	require.NoError(t, BindCommandFlags(cmd))

	_, err := GetTableConfig()
	require.Error(t, err)
}
