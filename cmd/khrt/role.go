package main

import (
	"strconv"

	"github.com/calehh/khrt-app/tx"
	"github.com/spf13/cobra"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Authority registry transactions",
}

func init() {
	var reason string
	grant := txCommand("grant <role> <account>", "grant a role", 2, tx.KHRTTxTypeGrantRole, func(args []string) (any, error) {
		account, err := parseAddr(args[1])
		if err != nil {
			return nil, err
		}
		return &tx.RoleTx{Role: args[0], Account: account, Reason: reason}, nil
	})
	grant.Flags().StringVar(&reason, "reason", "", "reason recorded in the event")
	revoke := txCommand("revoke <role> <account>", "revoke a role", 2, tx.KHRTTxTypeRevokeRole, func(args []string) (any, error) {
		account, err := parseAddr(args[1])
		if err != nil {
			return nil, err
		}
		return &tx.RoleTx{Role: args[0], Account: account, Reason: reason}, nil
	})
	revoke.Flags().StringVar(&reason, "reason", "", "reason recorded in the event")

	roleCmd.AddCommand(
		grant,
		revoke,
		txCommand("propose-change <role> <account> <grant>", "queue a role change", 3, tx.KHRTTxTypeProposeRoleChange, func(args []string) (any, error) {
			account, err := parseAddr(args[1])
			if err != nil {
				return nil, err
			}
			g, err := strconv.ParseBool(args[2])
			if err != nil {
				return nil, err
			}
			return &tx.ProposeRoleChangeTx{Role: args[0], Account: account, Grant: g}, nil
		}),
		txCommand("execute-change <id>", "apply a queued role change", 1, tx.KHRTTxTypeExecuteRoleChange, func(args []string) (any, error) {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return nil, err
			}
			return &tx.RoleChangeTx{Id: id}, nil
		}),
		txCommand("authorize <caller> <allowed>", "set an authorized caller", 2, tx.KHRTTxTypeSetAuthorizedCaller, func(args []string) (any, error) {
			caller, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			allowed, err := strconv.ParseBool(args[1])
			if err != nil {
				return nil, err
			}
			return &tx.AuthorizedCallerTx{Caller: caller, Allowed: allowed}, nil
		}),
		txCommand("emergency <active>", "toggle registry emergency mode", 1, tx.KHRTTxTypeToggleEmergencyMode, switchTx),
		txCommand("controller <address>", "hand governance to a new controller", 1, tx.KHRTTxTypeUpdateController, func(args []string) (any, error) {
			addr, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			return &tx.AddressTx{Address: addr}, nil
		}),
		txCommand("close-setup", "close the bootstrap window", 0, tx.KHRTTxTypeCloseSetup, func(args []string) (any, error) {
			return &tx.EmptyTx{}, nil
		}),
		txCommand("emergency-admin <address>", "replace the emergency admin", 1, tx.KHRTTxTypeUpdateEmergencyAdmin, func(args []string) (any, error) {
			addr, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			return &tx.AddressTx{Address: addr}, nil
		}),
	)
}
