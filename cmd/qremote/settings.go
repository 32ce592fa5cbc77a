// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autobrr/qremote/internal/models"
)

const redacted = "<redacted>"

// redact hides passwords and the search api key.
func redact(s models.Settings) models.Settings {
	servers := make([]models.ServerProfile, len(s.Servers))
	for i, p := range s.Servers {
		if p.Password != "" {
			p.Password = redacted
		}
		servers[i] = p
	}
	s.Servers = servers
	if s.SearchConfig != nil {
		sc := *s.SearchConfig
		if sc.APIKey != "" {
			sc.APIKey = redacted
		}
		s.SearchConfig = &sc
	}
	return s
}

func RunSettingsCommand(flags *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "settings",
		Short: "Show and change user settings",
	}

	command.AddCommand(runSettingsShow(flags))
	command.AddCommand(runSettingsSet(flags))
	command.AddCommand(runSettingsExport(flags))

	return command
}

func runSettingsShow(flags *globalFlags) *cobra.Command {
	var showSecrets bool

	command := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			settings := app.settings.Load(cmd.Context())
			if !showSecrets {
				settings = redact(settings)
			}
			return printJSON(cmd.OutOrStdout(), settings)
		},
	}

	command.Flags().BoolVar(&showSecrets, "show-secrets", false, "include passwords and api keys")
	return command
}

// settingsPatch turns key=value pairs into a patch.
func settingsPatch(pairs []string) (models.SettingsPatch, error) {
	var patch models.SettingsPatch
	listing := &models.ListingPatch{}
	search := models.SearchConfig{}
	searchTouched := false

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return patch, fmt.Errorf("expected key=value, got %q", pair)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "colorScheme":
			cs := models.ColorScheme(value)
			patch.ColorScheme = &cs
		case "authentication":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return patch, fmt.Errorf("authentication: %w", err)
			}
			patch.Authentication = &b
		case "sort":
			k := models.SortKey(value)
			listing.Sort = &k
		case "direction":
			d := models.SortDirection(value)
			listing.Direction = &d
		case "filter":
			f := models.Filter(value)
			listing.Filter = &f
		case "search.url":
			search.URL, searchTouched = value, true
		case "search.apiKey":
			search.APIKey, searchTouched = value, true
		case "search.type":
			search.Type, searchTouched = models.SearchBackend(value), true
		case "search":
			if value != "" && value != "none" {
				return patch, fmt.Errorf("search only accepts 'none' to clear the indexer config")
			}
			patch.ClearSearchConfig = true
		default:
			return patch, fmt.Errorf("unknown setting %q", key)
		}
	}

	if listing.Sort != nil || listing.Direction != nil || listing.Filter != nil {
		patch.Listing = listing
	}
	if searchTouched {
		patch.SearchConfig = &search
	}
	return patch, nil
}

func runSettingsSet(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "Change settings",
		Long: `Change one or more settings.

Keys: colorScheme (system|light|dark), authentication (true|false),
sort, direction (asc|desc), filter, search.url, search.apiKey,
search.type (jackett|prowlarr), search=none to clear the indexer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := settingsPatch(args)
			if err != nil {
				return err
			}

			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			if patch.SearchConfig != nil {
				// merge partial search fields with the stored config
				if current := app.settings.Load(cmd.Context()).SearchConfig; current != nil {
					merged := *current
					if patch.SearchConfig.URL != "" {
						merged.URL = patch.SearchConfig.URL
					}
					if patch.SearchConfig.APIKey != "" {
						merged.APIKey = patch.SearchConfig.APIKey
					}
					if patch.SearchConfig.Type != "" {
						merged.Type = patch.SearchConfig.Type
					}
					patch.SearchConfig = &merged
				}
			}

			settings, err := app.settings.Store(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), redact(settings))
		},
	}
}

func runSettingsExport(flags *globalFlags) *cobra.Command {
	var format string

	command := &cobra.Command{
		Use:   "export",
		Short: "Export settings and saved directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			export := struct {
				Settings    models.Settings    `json:"settings"`
				Directories models.Directories `json:"directories"`
			}{
				Settings:    redact(app.settings.Load(ctx)),
				Directories: app.directories.Load(ctx),
			}

			switch format {
			case "json":
				return printJSON(cmd.OutOrStdout(), export)
			case "yaml":
				return printYAML(cmd.OutOrStdout(), export)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	command.Flags().StringVar(&format, "format", "yaml", "output format: json or yaml")
	return command
}
