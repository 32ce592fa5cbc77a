// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/qremote/internal/models"
)

const pingTimeout = 15 * time.Second

type serverFlags struct {
	name       string
	url        string
	username   string
	password   string
	serverType string
	prompt     bool
}

func (f *serverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name (defaults to the host)")
	cmd.Flags().StringVar(&f.url, "url", "", "daemon URL, e.g. http://localhost:9091")
	cmd.Flags().StringVar(&f.username, "username", "", "daemon username")
	cmd.Flags().StringVar(&f.password, "password", "", "daemon password")
	cmd.Flags().StringVar(&f.serverType, "type", "", "daemon type: transmission or qbittorrent")
	cmd.Flags().BoolVar(&f.prompt, "ask-password", false, "prompt for the password")
}

func (f *serverFlags) input() (models.ServerInput, error) {
	in := models.ServerInput{
		Name:     f.name,
		URL:      f.url,
		Username: f.username,
		Password: f.password,
		Type:     models.ServerType(f.serverType),
	}
	if f.prompt {
		password, err := readPassword("Enter daemon password: ")
		if err != nil {
			return in, err
		}
		in.Password = password
	}
	return in, nil
}

func RunServersCommand(flags *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:     "servers",
		Aliases: []string{"server"},
		Short:   "Manage server profiles",
	}

	command.AddCommand(runServersList(flags))
	command.AddCommand(runServersAdd(flags))
	command.AddCommand(runServersUpdate(flags))
	command.AddCommand(runServersRemove(flags))
	command.AddCommand(runServersUse(flags))
	command.AddCommand(runServersTest(flags))

	return command
}

func runServersList(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List server profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			settings := app.settings.Load(cmd.Context())
			if len(settings.Servers) == 0 {
				cmd.Println("No servers configured. Add one with 'qremote servers add --url ...'")
				return nil
			}
			active, _ := settings.ActiveServer()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tNAME\tTYPE\tURL\tUSER")
			for _, p := range settings.Servers {
				marker := ""
				if p.ID == active.ID {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, p.ID, p.Name, p.ClientType(), p.URL, p.Username)
			}
			return w.Flush()
		},
	}
}

func runServersAdd(flags *globalFlags) *cobra.Command {
	var sf serverFlags

	command := &cobra.Command{
		Use:   "add",
		Short: "Add a server profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := sf.input()
			if err != nil {
				return err
			}

			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			profile, err := app.settings.AddServer(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Printf("Added server %q (%s)\n", profile.Name, profile.ID)
			return nil
		},
	}

	sf.register(command)
	_ = command.MarkFlagRequired("url")
	return command
}

func runServersUpdate(flags *globalFlags) *cobra.Command {
	var sf serverFlags

	command := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Update a server profile; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			existing, err := app.profile(ctx, args[0])
			if err != nil {
				return err
			}

			in, err := sf.input()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				in.Name = existing.Name
			}
			if !cmd.Flags().Changed("url") {
				in.URL = existing.URL
			}
			if !cmd.Flags().Changed("username") {
				in.Username = existing.Username
			}
			if !cmd.Flags().Changed("password") && !sf.prompt {
				in.Password = existing.Password
			}
			if !cmd.Flags().Changed("type") {
				in.Type = existing.Type
			}

			profile, err := app.settings.UpdateServer(ctx, existing.ID, in)
			if err != nil {
				return err
			}
			app.pool.Remove(profile.ID)
			cmd.Printf("Updated server %q\n", profile.Name)
			return nil
		},
	}

	sf.register(command)
	return command
}

func runServersRemove(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id|name>",
		Aliases: []string{"rm"},
		Short:   "Remove a server profile and its saved directories",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			p, err := app.profile(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := app.settings.RemoveServer(ctx, p.ID); err != nil {
				return err
			}
			if err := app.directories.PruneServer(ctx, p.ID); err != nil {
				log.Warn().Err(err).Str("serverID", p.ID).Msg("failed to prune saved directories")
			}
			cmd.Printf("Removed server %q\n", p.Name)
			return nil
		},
	}
}

func runServersUse(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id|name>",
		Short: "Make a server the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := app.settings.SetActive(cmd.Context(), p.ID); err != nil {
				return err
			}
			cmd.Printf("Active server is now %q\n", p.Name)
			return nil
		},
	}
}

func runServersTest(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test [id|name]",
		Short: "Connect to a daemon, the active one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
			defer cancel()

			p, client, err := app.client(ctx, ref)
			if err == nil {
				err = client.Ping(ctx)
			}
			if err != nil {
				return fmt.Errorf("connection to %q failed: %w", p.Name, err)
			}
			cmd.Printf("Connected to %q (%s)\n", p.Name, p.ClientType())
			return nil
		},
	}
}
