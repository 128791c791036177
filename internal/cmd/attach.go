package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/internal/storage"
	"github.com/utkarsh5026/taskpool/pool"
)

func newAttachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <connection-string>",
		Short: "Attach a storage account from its connection string",
		Example: `  storageprobe attach "DefaultEndpointsProtocol=https;AccountName=myaccount;AccountKey=...;EndpointSuffix=core.windows.net"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := storage.ParseConnectionString(args[0])
			if err != nil {
				return err
			}
			return a.attach(cs.Account())
		},
	}
}

func newAttachEmulatorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach-emulator",
		Short: "Attach the local storage emulator if it is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks, err := a.detectEmulator(cmd.Context())
			renderEndpointChecks(a.out, checks)
			if err != nil {
				return err
			}
			return a.attach(storage.ReachableEmulatorAccount(checks))
		},
	}
}

func (a *app) detectEmulator(ctx context.Context) ([]storage.EndpointCheck, error) {
	return storage.DetectEmulator(ctx, a.dialer, a.clients, a.cfg.Probe.EmulatorTimeout,
		pool.WithLogger(a.logger))
}

func (a *app) attach(acc storage.Account) error {
	replaced, err := a.store.Attach(acc)
	if err != nil {
		return fmt.Errorf("attach %s: %w", acc.Name, err)
	}

	if replaced {
		colorPrintf(a.out, yellow, "Account %q was already attached and has been updated.\n", acc.Name)
	} else {
		colorPrintf(a.out, green, "Attached %s\n", bold.Sprint(acc.Name))
	}
	a.logger.Info("account attached", "account", acc.Name, "replaced", replaced)
	return nil
}
