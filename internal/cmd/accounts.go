package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/internal/storage"
)

func newDetachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "detach <name>",
		Short:   "Detach a storage account",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Detach(args[0]); err != nil {
				return err
			}
			colorPrintf(a.out, green, "Detached %s\n", args[0])
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List attached storage accounts",
		Long: `list prints the attached storage accounts. The emulator account is
left out while the emulator is not running.`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := a.visibleAccounts(cmd.Context())
			if err != nil {
				return err
			}
			renderAccounts(a.out, accounts)
			return nil
		},
	}
}

// visibleAccounts lists the attached accounts, leaving out the emulator
// account while the emulator is not running.
func (a *app) visibleAccounts(ctx context.Context) ([]storage.Account, error) {
	accounts, err := a.store.List()
	if err != nil {
		return nil, err
	}

	at := -1
	for i, acc := range accounts {
		if acc.IsEmulator() {
			at = i
			break
		}
	}
	if at < 0 {
		return accounts, nil
	}

	if _, err := a.detectEmulator(ctx); err != nil {
		if !errors.Is(err, storage.ErrEmulatorNotRunning) {
			return nil, err
		}
		a.logger.Debug("hiding emulator account", "account", accounts[at].Name)
		colorPrintf(a.out, faint, "Emulator account %s hidden: the emulator is not running.\n", accounts[at].Name)
		accounts = append(accounts[:at], accounts[at+1:]...)
	}
	return accounts, nil
}
