package commands

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index without serving",
	Long: `Load the configured corpus, chunk and embed it, and write the records to the
vector store. Most useful with store.backend=chroma, where the index outlives
the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, newProgress("Loading docs"))
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warnf("Warning: %v", err)
			}
		}()

		n, err := a.buildIndex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks into the %s store.\n", n, cfg.Store.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
