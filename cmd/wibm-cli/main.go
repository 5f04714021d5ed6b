package main

import (
	"fmt"
	"os"

	"github.com/itsmrval/willitbemax/cmd/wibm-cli/cmd"
)

func main() {
	baseUrl, ok := os.LookupEnv("FETCHER_BASE_URL")
	if !ok {
		fmt.Println("You should specify the base url of the fetcher service in the environment variable FETCHER_BASE_URL.")
		os.Exit(1)
	}
	cmd.BaseUrl = baseUrl

	cmd.Execute()
}
