// Command fetch runs a single RemoteFetcher call and prints the resulting
// state as JSON. Useful for checking what the user API returns.
//
//	go run ./cmd/fetch [url]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/flokiorg/userhub/config"
	"github.com/flokiorg/userhub/fetcher"
	"github.com/flokiorg/userhub/logger"
)

func main() {
	godotenv.Load(".env")
	appConfig, err := config.LoadEnv()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(appConfig.LogLevel)

	url := appConfig.UserApiURL
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	f := fetcher.NewRemoteFetcherWithTimeout(appConfig.FetchTimeout)
	f.Loading.Subscribe(func(loading bool) {
		logger.Logger.Debug().Bool("loading", loading).Str("url", url).Msg("Fetch state changed")
	})

	fmt.Fprintf(os.Stderr, "Fetching %s...\n", url)
	f.Execute(context.Background(), url)

	state := f.State()
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		fmt.Printf("Failed to encode state: %v\n", err)
		os.Exit(1)
	}

	if state.Error != "" {
		os.Exit(1)
	}
}
