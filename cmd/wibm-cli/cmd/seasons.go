package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seasonsCmd)
}

var seasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "Syncs the season list from the results API into the scheduler.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().SetContext(cmd.Context()).Post("/fetch/seasons")
		if err != nil {
			log.Fatal(err)
		}
		if res.IsError() {
			fmt.Fprintln(os.Stderr, string(res.Body()))
			os.Exit(1)
		}

		var body struct {
			Count int `json:"count"`
		}
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("synced %d seasons\n", body.Count)
	},
}
