package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchSpec_Argv(t *testing.T) {
	cases := []struct {
		name string
		spec LaunchSpec
		want []string
	}{
		{
			name: "full spec",
			spec: LaunchSpec{Command: []string{"petcare-api"}, BindAddr: "0.0.0.0:8000", Workers: 4},
			want: []string{"petcare-api", "--bind", "0.0.0.0:8000", "--workers", "4"},
		},
		{
			name: "multi-word command",
			spec: LaunchSpec{Command: []string{"python", "-m", "petcare"}, BindAddr: "127.0.0.1:9000", Workers: 1},
			want: []string{"python", "-m", "petcare", "--bind", "127.0.0.1:9000", "--workers", "1"},
		},
		{
			name: "bare command",
			spec: LaunchSpec{Command: []string{"petcare-api"}},
			want: []string{"petcare-api"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.spec.Argv())
		})
	}
}

func TestExecLauncher_EmptyCommand(t *testing.T) {
	err := ExecLauncher{}.Launch(context.Background(), LaunchSpec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty service command")
}

func TestExecLauncher_MissingBinary(t *testing.T) {
	err := ExecLauncher{}.Launch(context.Background(), LaunchSpec{
		Command: []string{"petcare-api-definitely-not-installed"},
	})
	require.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "CHECKING_TOOLING", StateCheckingTooling.String())
	assert.Equal(t, "STARTING_SERVICE", StateStartingService.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
