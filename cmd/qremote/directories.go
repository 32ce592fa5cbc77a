// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/qremote/internal/models"
)

func RunDirectoriesCommand(flags *globalFlags) *cobra.Command {
	var server string

	command := &cobra.Command{
		Use:     "directories",
		Aliases: []string{"dirs"},
		Short:   "Manage saved download directories",
	}
	command.PersistentFlags().StringVarP(&server, "server", "s", "", "server id or name; without it directories are global")

	command.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			dirs := app.directories.Load(ctx)
			if server == "" {
				return printJSON(cmd.OutOrStdout(), dirs)
			}

			p, err := app.profile(ctx, server)
			if err != nil {
				return err
			}
			for _, dir := range dirs.ForServer(p.ID) {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			return nil
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "add <path>",
		Short: "Save a download directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDirectories(cmd, flags, server, func(app *Application, serverID string) (models.Directories, error) {
				if serverID == "" {
					return app.directories.AddGlobal(cmd.Context(), args[0])
				}
				return app.directories.AddForServer(cmd.Context(), serverID, args[0])
			})
		},
	})

	command.AddCommand(&cobra.Command{
		Use:     "remove <path>",
		Aliases: []string{"rm"},
		Short:   "Forget a saved download directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDirectories(cmd, flags, server, func(app *Application, serverID string) (models.Directories, error) {
				if serverID == "" {
					return app.directories.RemoveGlobal(cmd.Context(), args[0])
				}
				return app.directories.RemoveForServer(cmd.Context(), serverID, args[0])
			})
		},
	})

	return command
}

func editDirectories(cmd *cobra.Command, flags *globalFlags, server string, edit func(app *Application, serverID string) (models.Directories, error)) error {
	app, err := openApplication(flags)
	if err != nil {
		return err
	}
	defer app.Close()

	var serverID string
	if server != "" {
		p, err := app.profile(cmd.Context(), server)
		if err != nil {
			return err
		}
		serverID = p.ID
	}

	dirs, err := edit(app, serverID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), dirs)
}
