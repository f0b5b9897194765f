package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/home-designer/backend/internal/engine"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/parser"
	"github.com/home-designer/backend/internal/scene"
)

var (
	applyFormat  string
	applyCheck   bool
	applyDocOnly bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [scene-file] [operations-file]",
	Short: "Apply a batch of operations to a scene file",
	Long: `Applies the operations in a command-model reply ({"explanation", "operations"})
to a scene and prints the result with a diagnostic for every skipped operation.
The reply may be wrapped in a markdown code fence.`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyFormat, "output", "o", formatJSON, "output format: json or yaml")
	applyCmd.Flags().BoolVar(&applyCheck, "check", false, "validate the resulting scene")
	applyCmd.Flags().BoolVar(&applyDocOnly, "document-only", false, "print only the resulting scene")
	rootCmd.AddCommand(applyCmd)
}

type applyOutput struct {
	Explanation string                       `json:"explanation,omitempty"`
	Document    *models.SceneDocument        `json:"document"`
	Diagnostics []models.OperationDiagnostic `json:"diagnostics"`
	Malformed   []models.OperationDiagnostic `json:"malformed"`
	Added       []engine.Added               `json:"added"`
}

func runApply(cmd *cobra.Command, args []string) error {
	ids := scene.NewSequenceGenerator()

	raw, err := readSceneFile(args[0])
	if err != nil {
		return err
	}
	doc, err := scene.NewValidator(ids).Validate(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", args[0], err)
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}
	resp, malformed, err := parser.ParseCommandResponse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	res := engine.New(ids).Run(doc, resp.Operations)

	if applyCheck {
		if err := scene.ValidateDocument(res.Document); err != nil {
			return fmt.Errorf("result is invalid: %w", err)
		}
	}
	for _, d := range append(malformed, res.Diagnostics...) {
		cmd.PrintErrf("skipped operation %d (%s): %s\n", d.Index, d.Kind, d.Message)
	}

	if applyDocOnly {
		return writeOutput(cmd, res.Document, applyFormat)
	}
	return writeOutput(cmd, applyOutput{
		Explanation: resp.Explanation,
		Document:    res.Document,
		Diagnostics: res.Diagnostics,
		Malformed:   malformed,
		Added:       res.Added,
	}, applyFormat)
}
