package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-explore/internal/logger"
	"github.com/joeblew999/plat-explore/internal/server"
	"github.com/joeblew999/plat-explore/internal/zones"
)

// Options defines all CLI flags and env vars for the explore server.
// Flags: --host, --port, --data-dir, --api-endpoint, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_API_ENDPOINT, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir      string `doc:"Directory for the run log database" default:".data"`
	APIEndpoint  string `doc:"Base URL of the tile and zone service" default:"http://localhost:8000"`
	Panel        string `doc:"Panel catalog YAML, embedded default when empty"`
	Areas        string `doc:"Area catalog JSON"`
	EEZ          string `doc:"EEZ GeoJSON (.geojson or .geojson.gz)"`
	RedisAddr    string `doc:"Redis address for tour steps, in-memory when empty"`
	RedisPass    string `doc:"Redis password"`
	RedisDB      int    `doc:"Redis database" default:"0"`
	CacheEntries int    `doc:"Zone collections kept in memory" default:"256"`
	CacheSizeMB  int    `doc:"Encoded zone cache size in MB, 0 disables" default:"64"`
	CacheTTL     int    `doc:"Zone cache entry lifetime in seconds" default:"600"`
	RunLog       bool   `doc:"Record zone runs in DuckDB" default:"true"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		APIEndpoint: opts.APIEndpoint,
		PanelPath:   opts.Panel,
		AreasPath:   opts.Areas,
		EEZPath:     opts.EEZ,
		RedisAddr:   opts.RedisAddr,
		RedisPass:   opts.RedisPass,
		RedisDB:     opts.RedisDB,
		Cache: zones.CacheConfig{
			Entries: opts.CacheEntries,
			SizeMB:  opts.CacheSizeMB,
			TTL:     time.Duration(opts.CacheTTL) * time.Second,
		},
		RunLog: opts.RunLog,
	})
}

func main() {
	// .env is optional
	_ = godotenv.Load()
	logger.Setup()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
				os.Exit(1)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-explore API server starting...\n")
			fmt.Printf("  Server:   %s\n", baseURL)
			fmt.Printf("  Upstream: %s\n", opts.APIEndpoint)
			fmt.Printf("  Data:     %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Docs:     %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI:  %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics:  %s/metrics\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.L().Error("server_error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if srv != nil {
				if err := srv.Close(); err != nil {
					logger.L().Warn("server_close", "error", err)
				}
			}
		})
	})

	cli.Root().Use = "explore"
	cli.Root().Short = "Renewable energy explore sessions over HTTP"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.RunLog = false
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
