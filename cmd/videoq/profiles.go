package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

func profilesCmd() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "Inspect the available encoding profiles",
		Commands: []*cli.Command{
			profilesListCmd(),
			profilesShowCmd(),
		},
	}
}

func profilesListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List encoding profiles",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			def := env.profiles.Default()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVIDEO\tAUDIO\tDESCRIPTION")
			for _, name := range env.profiles.Names() {
				p, err := env.profiles.Get(name)
				if err != nil {
					return err
				}
				marker := ""
				if def != nil && p.Name == def.Name {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n",
					p.Name, marker, p.VideoCodec, p.AudioCodec, p.Description)
			}
			return w.Flush()
		},
	}
}

func profilesShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one profile and the encoder flags it expands to",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one profile name")
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := env.profiles.Get(cmd.Args().First())
			if err != nil {
				return err
			}

			fmt.Printf("name:        %s\n", p.Name)
			if p.Description != "" {
				fmt.Printf("description: %s\n", p.Description)
			}
			fmt.Printf("video codec: %s\n", p.VideoCodec)
			fmt.Printf("audio codec: %s\n", p.AudioCodec)
			if p.CRF != nil {
				fmt.Printf("crf:         %d\n", *p.CRF)
			}
			if p.VideoBitrate != "" {
				fmt.Printf("video rate:  %s\n", p.VideoBitrate)
			}
			if p.AudioBitrate != "" {
				fmt.Printf("audio rate:  %s\n", p.AudioBitrate)
			}
			if p.Preset != "" {
				fmt.Printf("preset:      %s\n", p.Preset)
			}
			if p.Resolution != "" {
				fmt.Printf("resolution:  %s\n", p.Resolution)
			}
			if p.FPS != "" {
				fmt.Printf("fps:         %s\n", p.FPS)
			}
			fmt.Printf("flags:       %s\n", strings.Join(p.EncodeArgs(), " "))
			return nil
		},
	}
}
