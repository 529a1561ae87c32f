package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autopad-go/domain/scene"
	"autopad-go/domain/script"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered scripts and scenes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		scenes, scripts, err := a.registries()
		if err != nil {
			return err
		}

		category, _ := cmd.Flags().GetString("category")
		if showScenes, _ := cmd.Flags().GetBool("scenes"); showScenes || category != "" {
			return writeScenes(cmd.OutOrStdout(), scenes, category)
		}
		return writeScripts(cmd.OutOrStdout(), scripts)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("scenes", false, "list scenes instead of scripts")
	listCmd.Flags().String("category", "", "list only scenes of this category")
}

func writeScripts(out io.Writer, reg *script.Registry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tINITIAL\tDESCRIPTION")
	for _, s := range reg.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Source, s.Initial, s.Description)
	}
	return tw.Flush()
}

func writeScenes(out io.Writer, reg *scene.Registry, category string) error {
	var scenes []*scene.Scene
	if category != "" {
		scenes = reg.GetByCategory(category)
	} else {
		for _, name := range reg.List() {
			scenes = append(scenes, reg.Get(name))
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tPOINTS")
	for _, sc := range scenes {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", sc.Name, sc.Category, len(sc.Points))
	}
	return tw.Flush()
}
