package main

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

// nothing listens on port 1, any rpc call against it fails
const unreachableRPC = "http://127.0.0.1:1"

func TestProfileCommandsStayOffline(t *testing.T) {
	profileDirOverride = t.TempDir()
	t.Cleanup(func() { profileDirOverride = "" })

	mint, authority := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	testCases := []struct {
		name          string
		args          []string
		wantConfigErr bool
	}{
		{
			name: "configured pool",
			args: []string{"--mint", mint.String(), "--authority", authority.String(), "--symbol", "TST"},
		},
		{
			name:          "unconfigured pool",
			args:          []string{"--mint", "", "--authority", "", "--symbol", ""},
			wantConfigErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			App = initApp()
			t.Cleanup(func() { App = nil })

			args := append([]string{"splstake", "--rpc", unreachableRPC}, tc.args...)
			require.NoError(t, App.cliCmd.Run(context.Background(), append(args, "profile", "show")))
			assert.Nil(t, App.solClient)
			assert.Nil(t, App.client)

			if tc.wantConfigErr {
				// unconfigured pools are rejected before any connection attempt
				err := checkConfigured(context.Background(), nil)
				require.ErrorIs(t, err, staking.ErrConfiguration)
				assert.Nil(t, App.solClient)
				return
			}
			require.NoError(t, App.configErr)
			assert.Equal(t, mint, App.cfg.Mint)
		})
	}
}
