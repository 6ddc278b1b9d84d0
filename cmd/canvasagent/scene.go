package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"canvas-agent/internal/command"
	"canvas-agent/internal/model"
	"canvas-agent/internal/scene"
)

type sceneFlags struct {
	path      string
	selection []string
	width     float64
	height    float64
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "scene", "s", "", "Scene file (YAML or JSON)")
	cmd.Flags().StringSliceVar(&f.selection, "select", nil, "Object ids to treat as selected (overrides the file)")
	cmd.Flags().Float64Var(&f.width, "width", 1080, "Canvas width when the file has none")
	cmd.Flags().Float64Var(&f.height, "height", 1080, "Canvas height when the file has none")
	_ = cmd.MarkFlagRequired("scene")
}

func (f *sceneFlags) load() (model.Document, error) {
	doc, err := scene.LoadDocument(f.path, f.width, f.height)
	if err != nil {
		return model.Document{}, err
	}
	if f.selection != nil {
		doc.Selection = f.selection
	}
	return doc, nil
}

func buildPlanCmd() *cobra.Command {
	var flags sceneFlags
	cmd := &cobra.Command{
		Use:   "plan INSTRUCTION...",
		Short: "Print the actions an instruction would produce",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := flags.load()
			if err != nil {
				return err
			}
			res := command.Plan(strings.Join(args, " "), scene.DocumentSnapshot(doc), nil)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	flags.register(cmd)
	return cmd
}

func buildApplyCmd() *cobra.Command {
	var flags sceneFlags
	cmd := &cobra.Command{
		Use:   "apply INSTRUCTION...",
		Short: "Plan an instruction, apply it to the scene and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := flags.load()
			if err != nil {
				return err
			}
			res := command.Plan(strings.Join(args, " "), scene.DocumentSnapshot(doc), nil)
			m := scene.FromDocument(doc)
			inverse := command.Execute(m, res.Actions)
			m.ToDocument(&doc)
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"message":  res.Message,
				"actions":  res.Actions,
				"inverse":  inverse,
				"document": doc,
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
