package cmd

import (
	"encoding/json"
	"log"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the health of the fetcher service and its upstreams.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().SetContext(cmd.Context()).Get("/status")
		if err != nil {
			log.Fatal(err)
		}

		var body map[string]any
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			log.Fatal(err)
		}

		names := make([]string, 0, len(body))
		for name := range body {
			if name == "timestamp" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Check", "Value"})
		for _, name := range names {
			t.AppendRow(table.Row{name, body[name]})
		}
		t.Render()
	},
}
