package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"namelens/internal/config"
	"namelens/internal/paths"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, .namelens/config.json and
NAMELENS_* environment overrides have been applied.`,
	Run: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables that override settings",
	Run:   runConfigEnv,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .namelens/config.json",
	Run:   runConfigInit,
}

func init() {
	configCmd.PersistentFlags().StringVar(&configFormat, "format", "human", "Output format (human, json)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigResponseCLI is the output of config show
type ConfigResponseCLI struct {
	Root   string         `json:"root"`
	Path   string         `json:"path"`
	Exists bool           `json:"exists"`
	Config *config.Config `json:"config"`
}

// EnvResponseCLI is the output of config env
type EnvResponseCLI struct {
	Variables []EnvVarCLI `json:"variables"`
}

// EnvVarCLI is one override variable and its current value
type EnvVarCLI struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Set   bool   `json:"set"`
}

func runConfigShow(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := mustLoadConfig(root)

	path := paths.ConfigPath(root)
	_, err := os.Stat(path)
	resp := &ConfigResponseCLI{
		Root:   root,
		Path:   path,
		Exists: err == nil,
		Config: cfg,
	}
	printResponse(resp, configFormat)
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	keys := config.EnvKeys()
	sort.Strings(keys)

	resp := &EnvResponseCLI{Variables: make([]EnvVarCLI, 0, len(keys))}
	for _, k := range keys {
		v, ok := os.LookupEnv(k)
		if ok && strings.Contains(strings.ToLower(k), "key") {
			v = "***"
		}
		resp.Variables = append(resp.Variables, EnvVarCLI{Name: k, Value: v, Set: ok})
	}
	printResponse(resp, configFormat)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	path := paths.ConfigPath(root)
	if _, err := os.Stat(path); err == nil && !configForce {
		fmt.Fprintf(os.Stderr, "Config already exists at %s (use --force to overwrite)\n", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", paths.Display(path, root))
}
