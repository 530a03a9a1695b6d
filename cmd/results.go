package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/zonal-metrics/internal/store"
)

var resultsFlags struct {
	id     string
	slug   string
	limit  int
	offset int
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List metric records saved by measure --save",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("results"); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if resultsFlags.id != "" {
			result, err := st.Get(cmd.Context(), resultsFlags.id)
			if err != nil {
				return err
			}
			return enc.Encode(result)
		}

		results, err := st.List(cmd.Context(), store.Filter{
			Slug:   resultsFlags.slug,
			Limit:  resultsFlags.limit,
			Offset: resultsFlags.offset,
		})
		if err != nil {
			return err
		}
		return enc.Encode(results)
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsFlags.id, "id", "", "fetch one record by id")
	resultsCmd.Flags().StringVar(&resultsFlags.slug, "slug", "", "filter by metric slug")
	resultsCmd.Flags().IntVar(&resultsFlags.limit, "limit", 0, "max records to return (default 100)")
	resultsCmd.Flags().IntVar(&resultsFlags.offset, "offset", 0, "records to skip")
	rootCmd.AddCommand(resultsCmd)
}
