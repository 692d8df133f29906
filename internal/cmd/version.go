package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liuxd6825/webaccept/version"
)

type versionCmd struct {
	gs     *GlobalState
	isJSON bool
}

func (c *versionCmd) run(cmd *cobra.Command, _ []string) error {
	if !c.isJSON {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "webaccept v%s\n", version.FullWithCommit())
		return err
	}

	jsonDetails, err := json.Marshal(version.Details())
	if err != nil {
		return fmt.Errorf("failed produce a JSON version details: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(jsonDetails))
	return err
}

func getCmdVersion(gs *GlobalState) *cobra.Command {
	versionCmd := &versionCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  `Show the application version and exit.`,
		RunE:  versionCmd.run,
	}
	cmd.Flags().BoolVar(&versionCmd.isJSON, "json", false, "if set, output version information will be in JSON format")
	return cmd
}
