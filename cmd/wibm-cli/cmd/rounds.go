package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	roundsOnly int
	roundsLive string
)

func init() {
	roundsCmd.Flags().IntVar(&roundsOnly, "round", -1, "fetch a single round id instead of the whole season")
	roundsCmd.Flags().StringVar(&roundsLive, "live", "", "force a session type to be treated as live (e.g. race)")
	rootCmd.AddCommand(roundsCmd)
}

var roundsCmd = &cobra.Command{
	Use:   "rounds <season>",
	Short: "Runs the website extraction pipeline for a season and syncs the rounds.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "incorrect number of arguments")
			os.Exit(1)
		}
		season, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "season must be a year")
			os.Exit(1)
		}

		req := client.R().SetContext(cmd.Context())
		if roundsOnly >= 0 {
			req.SetQueryParam("round", strconv.Itoa(roundsOnly))
		}
		if roundsLive != "" {
			req.SetQueryParam("live", roundsLive)
		}

		res, err := req.Post(fmt.Sprintf("/fetch/rounds/%d", season))
		if err != nil {
			log.Fatal(err)
		}
		if res.IsError() {
			fmt.Fprintln(os.Stderr, string(res.Body()))
			os.Exit(1)
		}

		var body struct {
			Season          int `json:"season"`
			Count           int `json:"count"`
			RecordsAffected int `json:"records_affected"`
		}
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Season", "Rounds", "Records affected"})
		t.AppendRow(table.Row{body.Season, body.Count, body.RecordsAffected})
		t.Render()
	},
}
